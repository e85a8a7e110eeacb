package lib

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/horizenlabs/evmbridge/interop"
	"github.com/horizenlabs/evmbridge/trampoline"
)

var (
	ErrBufferTooSmall     = errors.New("callback response does not fit the buffer")
	ErrBufferOverflow     = errors.New("callback reported more data than the buffer holds")
	ErrMissingResponse    = errors.New("callback returned nothing, but a response was expected")
	ErrUnexpectedResponse = errors.New("expected empty response from callback")
)

// Proxy delivers a callback invocation to the host.
type Proxy interface {
	Call(handle int, args string) (string, error)
}

type echoProxy struct {
	cb trampoline.EchoCallback
}

// NewEchoProxy returns a Proxy on top of a callback that answers with its
// result directly. A nil result is treated as an empty response. A nil
// callback gives a nil Proxy.
func NewEchoProxy(cb trampoline.EchoCallback) Proxy {
	if cb == nil {
		return nil
	}
	return &echoProxy{cb: cb}
}

func (p *echoProxy) Call(handle int, args string) (string, error) {
	return string(trampoline.InvokeEcho(p.cb, int32(handle), []byte(args))), nil
}

type statusProxy struct {
	cb   trampoline.StatusCallback
	size int
}

// NewStatusProxy returns a Proxy on top of a callback that writes its response
// into a buffer of bufferSize bytes and returns the response length. A
// negative status means the buffer was too small and carries the required
// size, the call is then repeated once with a buffer of that size. A nil
// callback gives a nil Proxy.
func NewStatusProxy(cb trampoline.StatusCallback, bufferSize int) Proxy {
	if cb == nil {
		return nil
	}
	return &statusProxy{cb: cb, size: bufferSize}
}

func (p *statusProxy) Call(handle int, args string) (string, error) {
	buf := make([]byte, p.size)
	n := trampoline.InvokeStatus(p.cb, int32(handle), []byte(args), buf)
	if n < 0 {
		buf = make([]byte, -int(n))
		n = trampoline.InvokeStatus(p.cb, int32(handle), []byte(args), buf)
		if n < 0 {
			return "", fmt.Errorf("%w: %d bytes required, %d available", ErrBufferTooSmall, -int(n), len(buf))
		}
	}
	if int(n) > len(buf) {
		return "", fmt.Errorf("%w: %d > %d", ErrBufferOverflow, n, len(buf))
	}
	return string(buf[:n]), nil
}

type proxyHolder struct{ Proxy }

var proxy atomic.Pointer[proxyHolder]

// SetCallbackProxy sets the process wide proxy used by all callbacks. Passing
// nil disables callbacks, they succeed without doing anything.
func SetCallbackProxy(p Proxy) {
	if p == nil {
		proxy.Store(nil)
		return
	}
	proxy.Store(&proxyHolder{p})
}

// CallbackProxy returns the current proxy, nil if none is set.
func CallbackProxy() Proxy {
	if h := proxy.Load(); h != nil {
		return h.Proxy
	}
	return nil
}

// Callback is a host-side function identified by an integer handle.
type Callback int

// Invoke calls the host function through the global proxy. Arguments are
// serialized to JSON and the response is decoded into ret. A nil ret means no
// response is expected. Without a proxy Invoke does nothing and ret is left
// untouched.
func (c Callback) Invoke(args any, ret any) error {
	if CallbackProxy() == nil {
		return nil
	}
	argsJson, err := interop.Serialize(args)
	if err != nil {
		// not logged: this might be the log callback itself
		return err
	}
	result, err := c.call(argsJson)
	if err != nil {
		return err
	}
	switch {
	case result == "" && ret == nil:
		return nil
	case result == "":
		return fmt.Errorf("%w of type %T", ErrMissingResponse, ret)
	case ret == nil:
		return fmt.Errorf("%w, but got: %s", ErrUnexpectedResponse, result)
	}
	return interop.Deserialize(result, ret)
}

// call hands raw JSON arguments to the host and returns the raw response.
func (c Callback) call(args string) (string, error) {
	p := CallbackProxy()
	if p == nil {
		return "", nil
	}
	start := time.Now()
	result, err := p.Call(int(c), args)
	callbackTimer.UpdateSince(start)
	callbackCallCounter.Inc(1)
	if err != nil {
		callbackErrorCounter.Inc(1)
		return "", fmt.Errorf("callback %d: %w", int(c), err)
	}
	return result, nil
}

// UnmarshalJSON reads a callback handle from a JSON number.
func (c *Callback) UnmarshalJSON(input []byte) error {
	handle, err := strconv.Atoi(string(input))
	if err == nil {
		*c = Callback(handle)
	}
	return err
}
