// Package lib implements the bridge service: go-ethereum databases and state
// objects that the host drives through opaque handles, plus callbacks from
// the service back into the host.
package lib

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/horizenlabs/evmbridge/config"
	"github.com/horizenlabs/evmbridge/handles"
	"github.com/horizenlabs/evmbridge/interop"
	nativebridge "github.com/horizenlabs/evmbridge/native_bridge"
)

// Version of the bridge library, reported to the host.
const Version = "0.3.0"

// blockHashCacheSize bounds the number of resolved block hashes kept per
// service.
const blockHashCacheSize = 256

type blockHashKey struct {
	callback Callback
	number   uint64
}

// Service holds all objects referenced by the host. Exported methods with at
// most one parameter are callable through Invoke.
type Service struct {
	cfg       *config.Config
	databases *handles.Handles[*Database]
	statedbs  *handles.Handles[*openState]
	tracers   *handles.Handles[*evmTracer]

	blockHashes *lru.Cache

	logMu   sync.Mutex
	logFile *lumberjack.Logger
}

// New creates a service. A nil configuration selects config.Defaults.
func New(cfg *config.Config) *Service {
	if cfg == nil {
		defaults := config.Defaults
		cfg = &defaults
	}
	blockHashes, _ := lru.New(blockHashCacheSize)
	return &Service{
		cfg:         cfg,
		databases:   handles.New[*Database]("databases"),
		statedbs:    handles.New[*openState]("statedbs"),
		tracers:     handles.New[*evmTracer]("tracers"),
		blockHashes: blockHashes,
	}
}

// Invoke runs the named service method with JSON encoded arguments and
// returns the JSON response envelope, see interop.Invoke.
func (s *Service) Invoke(method, args string) string {
	start := time.Now()
	defer invokeTimer.UpdateSince(start)

	res := interop.Invoke(s, method, args)
	if res != "" {
		var resp interop.Response
		if err := interop.Deserialize(res, &resp); err == nil && resp.Error != "" {
			invokeErrorCounter.Inc(1)
			log.Debug("invocation failed", "method", method, "err", resp.Error)
		}
	}
	return res
}

// Close releases every database and state handle as well as the log file.
// It is exported through Invoke on purpose: the host owns the lifetime of all
// handles and may drop them at once, e.g. before unloading the library. The
// service stays usable, new handles can be opened afterwards.
func (s *Service) Close() error {
	var errs []error
	var open []int
	s.databases.Range(func(handle int, _ *Database) bool {
		open = append(open, handle)
		return true
	})
	for _, handle := range open {
		errs = append(errs, s.DatabaseClose(DatabaseParams{DatabaseHandle: handle}))
	}

	s.logMu.Lock()
	if s.logFile != nil {
		errs = append(errs, s.logFile.Close())
		s.logFile = nil
	}
	s.logMu.Unlock()
	return errors.Join(errs...)
}

// VersionInfo describes the running library.
type VersionInfo struct {
	Version   string `json:"version"`
	Backend   string `json:"backend"`
	GoVersion string `json:"goVersion"`
}

func (s *Service) Version() VersionInfo {
	return VersionInfo{
		Version:   Version,
		Backend:   nativebridge.Backend(),
		GoVersion: runtime.Version(),
	}
}

type BlockHashParams struct {
	Callback *BlockHashCallback `json:"callback"`
	Number   hexutil.Uint64     `json:"number"`
}

// BlockHash resolves a block hash through the given host callback. Hashes
// returned by the host are cached per callback handle and block number.
func (s *Service) BlockHash(params BlockHashParams) common.Hash {
	number := uint64(params.Number)
	if params.Callback == nil {
		return params.Callback.BlockHash(number)
	}
	key := blockHashKey{params.Callback.Callback, number}
	if cached, ok := s.blockHashes.Get(key); ok {
		return cached.(common.Hash)
	}
	hash := params.Callback.BlockHash(number)
	if hash != (common.Hash{}) {
		s.blockHashes.Add(key, hash)
	}
	return hash
}

type CallbackParams struct {
	Callback Callback        `json:"callback"`
	Args     json.RawMessage `json:"args"`
}

// CallbackInvoke forwards raw JSON arguments to a host callback and returns
// the raw reply, null if the host did not answer.
func (s *Service) CallbackInvoke(params CallbackParams) (json.RawMessage, error) {
	args := "null"
	if len(params.Args) > 0 {
		args = string(params.Args)
	}
	reply, err := params.Callback.call(args)
	if err != nil {
		return nil, err
	}
	if reply == "" {
		return nil, nil
	}
	if !json.Valid([]byte(reply)) {
		return nil, fmt.Errorf("callback %d returned invalid JSON", int(params.Callback))
	}
	return json.RawMessage(reply), nil
}
