// kvstore runs the single-node UDP key-value store server.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kingpin"
	"github.com/lmittmann/tint"

	"github.com/kuiwang02/kvstore/internal/kvserver"
	"github.com/kuiwang02/kvstore/internal/store"
)

var (
	argIP   = kingpin.Arg("ip", "IP address to bind.").Default("0.0.0.0").String()
	argPort = kingpin.Arg("port", "UDP port to bind.").Default("16401").Uint16()

	flgSoftLimitMB = kingpin.Flag("soft-limit-mb", "Store admission soft limit, in MiB.").
			Default("60").Int64()
	flgHardLimitMB = kingpin.Flag("hard-limit-mb", "Store hard ceiling, in MiB.").
			Default("67").Int64()
	flgWorkers = kingpin.Flag("workers", "Worker pool size for concurrent request handling (0 = runtime.NumCPU()*4).").
			Default("0").Int()
	flgShedOverload = kingpin.Flag("shed-overload", "Enable the optional TemporarySystemOverload backpressure path.").
				Default("false").Bool()
	flgShedHighWaterMark = kingpin.Flag("shed-high-water-mark", "In-flight request count above which load is shed.").
				Default("4096").Int64()
)

func main() {
	kingpin.Parse()

	log := newLogger()

	addr := fmt.Sprintf("%s:%d", *argIP, *argPort)
	srv, err := kvserver.New(kvserver.Config{
		Addr: addr,
		Limits: store.Limits{
			Soft: *flgSoftLimitMB * 1024 * 1024,
			Hard: *flgHardLimitMB * 1024 * 1024,
		},
		Workers:           *flgWorkers,
		ShedOverload:      *flgShedOverload,
		ShedHighWaterMark: *flgShedHighWaterMark,
	}, log)
	if err != nil {
		log.Error("failed to start server", "error", err)
		os.Exit(1)
	}
	defer srv.Close()

	log.Info("listening", "addr", srv.Addr().String())

	if err := srv.Run(); err != nil && !errors.Is(err, kvserver.ErrShutdown) {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutting down")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("KVSTORE_LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))
}
