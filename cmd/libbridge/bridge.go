package main

import (
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"

	"github.com/horizenlabs/evmbridge/config"
	"github.com/horizenlabs/evmbridge/lib"
)

// bridge holds the service all exported functions operate on.
type bridge struct {
	service atomic.Pointer[lib.Service]
	// default buffer size for status callbacks, from the active configuration
	bufferSize atomic.Int64

	logMu sync.Mutex
	// callback handle logs are forwarded to, nil until the host sets it up
	logHandle *int
}

// newBridge creates a bridge for cfg, nil selects config.Defaults.
func newBridge(cfg *config.Config) *bridge {
	if cfg == nil {
		defaults := config.Defaults
		cfg = &defaults
	}
	b := new(bridge)
	b.use(cfg)
	return b
}

// use replaces the service with a new one for cfg. Log output is set up
// again at the configured level before the previous service is closed.
func (b *bridge) use(cfg *config.Config) {
	b.bufferSize.Store(int64(cfg.Callback.BufferSize))
	svc := lib.New(cfg)
	old := b.service.Swap(svc)

	b.logMu.Lock()
	var err error
	if b.logHandle != nil {
		err = svc.SetupLogging(lib.LoggingParams{Handle: *b.logHandle})
	} else {
		err = svc.ApplyLogConfig()
	}
	b.logMu.Unlock()
	if err != nil {
		log.Warn("failed to apply log configuration", "err", err)
	}

	if old != nil {
		if err := old.Close(); err != nil {
			log.Warn("failed to close previous service", "err", err)
		}
	}
}

func (b *bridge) configure(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		log.Error("unable to load configuration", "err", err)
		return err
	}
	b.use(cfg)
	return nil
}

// setupLogging forwards log output to the host callback handle. An empty
// level selects the configured one.
func (b *bridge) setupLogging(handle int, level string) error {
	b.logMu.Lock()
	defer b.logMu.Unlock()

	err := b.service.Load().SetupLogging(lib.LoggingParams{Handle: handle, Level: level})
	if err != nil {
		return err
	}
	b.logHandle = &handle
	return nil
}

// statusBufferSize returns the buffer size for a status callback proxy, a
// size of zero or less selects the configured one.
func (b *bridge) statusBufferSize(size int) int {
	if size <= 0 {
		return int(b.bufferSize.Load())
	}
	return size
}

func (b *bridge) invoke(method, args string) string {
	return b.service.Load().Invoke(method, args)
}
