package lib

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/eth/tracers/logger"
)

// evmTracer collects opcode level traces of EvmApply calls. A tracer can be
// shared between states, so every use holds mu.
type evmTracer struct {
	mu     sync.Mutex
	logger *logger.StructLogger
	hooks  *tracing.Hooks
}

type TracerCreateParams struct {
	EnableMemory     bool `json:"enableMemory"`
	DisableStack     bool `json:"disableStack"`
	DisableStorage   bool `json:"disableStorage"`
	EnableReturnData bool `json:"enableReturnData"`
	Limit            int  `json:"limit"`
}

type TracerParams struct {
	TracerHandle int `json:"tracerHandle"`
}

// TracerCreate creates a struct logger tracer. Pass its handle in
// EvmContext.Tracer to trace invocations.
func (s *Service) TracerCreate(params TracerCreateParams) int {
	structLogger := logger.NewStructLogger(&logger.Config{
		EnableMemory:     params.EnableMemory,
		DisableStack:     params.DisableStack,
		DisableStorage:   params.DisableStorage,
		EnableReturnData: params.EnableReturnData,
		Limit:            params.Limit,
	})
	return s.tracers.Add(&evmTracer{logger: structLogger, hooks: structLogger.Hooks()})
}

func (s *Service) TracerRemove(params TracerParams) {
	s.tracers.Remove(params.TracerHandle)
}

// TracerResult returns the trace of the last traced invocation.
func (s *Service) TracerResult(params TracerParams) (json.RawMessage, error) {
	tracer, err := s.tracers.Get(params.TracerHandle)
	if err != nil {
		return nil, err
	}
	tracer.mu.Lock()
	defer tracer.mu.Unlock()

	result, err := tracer.logger.GetResult()
	if err != nil {
		return nil, fmt.Errorf("trace error: %w", err)
	}
	return result, nil
}
