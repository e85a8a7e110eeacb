package lib

import "github.com/ethereum/go-ethereum/metrics"

var (
	callbackCallCounter  = metrics.NewRegisteredCounter("bridge/callback/calls", nil)
	callbackErrorCounter = metrics.NewRegisteredCounter("bridge/callback/errors", nil)
	callbackTimer        = metrics.NewRegisteredTimer("bridge/callback/time", nil)

	invokeTimer        = metrics.NewRegisteredTimer("bridge/invoke/time", nil)
	invokeErrorCounter = metrics.NewRegisteredCounter("bridge/invoke/errors", nil)
)
