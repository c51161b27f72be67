package kvserver

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// OverloadShedder is the optional backpressure mechanism from spec section
// 4.7/5: when the number of requests in flight (between Enter and its
// returned leave func) crosses a high-water mark, it reports "shedding" with a suggested wait time that grows the
// longer the overload persists, computed with an exponential backoff.
//
// Disabled (nil) by default; the spec does not require this for conformance.
type OverloadShedder struct {
	highWaterMark int64
	inFlight      int64

	mu     sync.Mutex
	bo     *backoff.ExponentialBackOff
	shared bool // true while ShouldShed keeps reporting shedding; reset with bo once it stops
}

// NewOverloadShedder creates a shedder that trips once more than
// highWaterMark requests are in flight concurrently.
func NewOverloadShedder(highWaterMark int64) *OverloadShedder {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 0 // never give up suggesting a wait

	return &OverloadShedder{
		highWaterMark: highWaterMark,
		bo:            bo,
	}
}

// Enter marks the start of a request's handling. Callers must call the
// returned func when handling completes.
func (o *OverloadShedder) Enter() (leave func()) {
	atomic.AddInt64(&o.inFlight, 1)
	return func() { atomic.AddInt64(&o.inFlight, -1) }
}

// ShouldShed reports whether the server should shed load right now, and if
// so, a suggested wait time for the client before retrying.
func (o *OverloadShedder) ShouldShed() (shed bool, waitHint time.Duration) {
	inFlight := atomic.LoadInt64(&o.inFlight)

	o.mu.Lock()
	defer o.mu.Unlock()

	if inFlight <= o.highWaterMark {
		if o.shared {
			o.bo.Reset()
			o.shared = false
		}
		return false, 0
	}

	o.shared = true
	return true, o.bo.NextBackOff()
}
