package lib

import (
	"bytes"
	"io"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/horizenlabs/evmbridge/config"
)

type LoggingParams struct {
	Handle int    `json:"handle"`
	Level  string `json:"level"`
}

// callbackWriter forwards every log line to a host callback. Errors cannot be
// reported from here: logging them would end up in this writer again.
type callbackWriter struct {
	cb Callback
}

func (w callbackWriter) Write(p []byte) (int, error) {
	w.cb.call(string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}

// SetupLogging routes all log output as JSON lines to the host callback with
// the given handle, filtered by level. An empty level selects the configured
// one. If the configuration names a log file the output is written there as
// well.
func (s *Service) SetupLogging(params LoggingParams) error {
	return s.installLogHandler(callbackWriter{cb: Callback(params.Handle)}, params.Level)
}

// ApplyLogConfig writes log output at the configured level to the configured
// log file. Without a log file the current handler is left in place.
func (s *Service) ApplyLogConfig() error {
	if s.cfg.Log.File == "" {
		return nil
	}
	return s.installLogHandler(nil, "")
}

func (s *Service) installLogHandler(out io.Writer, level string) error {
	if level == "" {
		level = s.cfg.Log.Level
	}
	lvl, err := config.ParseLevel(level)
	if err != nil {
		log.Error("unable to parse log level", "level", level, "err", err)
		return err
	}

	if file := s.logWriter(); file != nil {
		if out == nil {
			out = file
		} else {
			out = io.MultiWriter(out, file)
		}
	}
	handler := log.NewGlogHandler(log.JSONHandler(out))
	handler.Verbosity(lvl)
	log.SetDefault(log.NewLogger(handler))
	return nil
}

// logWriter returns the rotating log file from the configuration, nil if
// none is configured.
func (s *Service) logWriter() io.Writer {
	cfg := s.cfg.Log
	if cfg.File == "" {
		return nil
	}
	s.logMu.Lock()
	defer s.logMu.Unlock()

	if s.logFile == nil {
		s.logFile = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
	}
	return s.logFile
}
