package kvserver

import (
	"os"

	"github.com/kuiwang02/kvstore/internal/store"
	"github.com/kuiwang02/kvstore/internal/wire"
)

// Dispatcher applies a decoded Request to the Store and produces a Response,
// per the command table in spec section 4.5. It never panics: requests with
// missing required fields map to UnrecognizedCommand rather than crashing.
type Dispatcher struct {
	store   *store.Store
	shedder *OverloadShedder // nil disables overload shedding entirely
}

// NewDispatcher creates a dispatcher over s. shedder may be nil to disable
// the optional TemporarySystemOverload backpressure path.
func NewDispatcher(s *store.Store, shedder *OverloadShedder) *Dispatcher {
	return &Dispatcher{store: s, shedder: shedder}
}

// Dispatch processes req and returns the response to send. shutdown is true
// only for a successfully-validated Shutdown command, signalling the caller
// to terminate the process after sending the response.
func (d *Dispatcher) Dispatch(req wire.Request) (resp wire.Response, shutdown bool) {
	switch req.Command {
	case wire.CommandIsAlive:
		return wire.Response{ErrCode: wire.Success}, false

	case wire.CommandWipeout:
		d.store.Clear()
		return wire.Response{ErrCode: wire.Success}, false

	case wire.CommandPut:
		if req.Key == nil || req.Value == nil {
			return wire.Response{ErrCode: wire.UnrecognizedCommand}, false
		}
		if resp, shed := d.overloadResponse(); shed {
			return resp, false
		}
		version := int32(0)
		if req.Version != nil {
			version = *req.Version
		}
		code := d.store.Put(req.Key, req.Value, version)
		return wire.Response{ErrCode: code}, false

	case wire.CommandGet:
		if req.Key == nil {
			return wire.Response{ErrCode: wire.UnrecognizedCommand}, false
		}
		if resp, shed := d.overloadResponse(); shed {
			return resp, false
		}
		value, version, ok := d.store.Get(req.Key)
		if !ok {
			return wire.Response{ErrCode: wire.NonExistentKey}, false
		}
		v := version
		return wire.Response{ErrCode: wire.Success, Value: value, Version: &v}, false

	case wire.CommandRemove:
		if req.Key == nil {
			return wire.Response{ErrCode: wire.UnrecognizedCommand}, false
		}
		if resp, shed := d.overloadResponse(); shed {
			return resp, false
		}
		code := d.store.Remove(req.Key)
		return wire.Response{ErrCode: code}, false

	case wire.CommandShutdown:
		return wire.Response{ErrCode: wire.Success}, true

	case wire.CommandGetPID:
		pid := int32(os.Getpid())
		return wire.Response{ErrCode: wire.Success, PID: &pid}, false

	case wire.CommandGetMembershipCount:
		count := int32(1)
		return wire.Response{ErrCode: wire.Success, MembershipCount: &count}, false

	case wire.CommandGetMembershipList:
		// Single-node deployment: a syntactically valid Success response
		// with no membership fields populated (spec section 9, Open Question).
		return wire.Response{ErrCode: wire.Success}, false

	default:
		return wire.Response{ErrCode: wire.UnrecognizedCommand}, false
	}
}

// overloadResponse reports whether the server is currently shedding load; if
// so it returns the TemporarySystemOverload response the caller should send
// without touching the store.
func (d *Dispatcher) overloadResponse() (wire.Response, bool) {
	if d.shedder == nil {
		return wire.Response{}, false
	}
	shed, wait := d.shedder.ShouldShed()
	if !shed {
		return wire.Response{}, false
	}
	waitMs := int32(wait.Milliseconds())
	return wire.Response{ErrCode: wire.TemporarySystemOverload, OverloadWaitTime: &waitMs}, true
}
