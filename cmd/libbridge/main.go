//go:build cgo
// +build cgo

// Command libbridge is built as a C shared library:
//
//	go build -buildmode=c-shared -o libbridge.so ./cmd/libbridge
//
// The host registers its callback function pointers, then drives the bridge
// service through Invoke with JSON encoded arguments.
package main

// #include <stdlib.h>
import "C"

import (
	"unsafe"

	"github.com/ethereum/go-ethereum/log"

	"github.com/horizenlabs/evmbridge/config"
	"github.com/horizenlabs/evmbridge/lib"
	nativebridge "github.com/horizenlabs/evmbridge/native_bridge"
)

var instance = newBridge(nil)

// main is required by cgo but never called.
func main() {}

// SetCallbackProxy registers the host callback
//
//	char* callback(int handle, char *args)
//
// The returned string must be allocated with malloc, it is released with free
// unless a release function is registered.
// Passing NULL disables callbacks.
//
//export SetCallbackProxy
func SetCallbackProxy(fn unsafe.Pointer) {
	lib.SetCallbackProxy(lib.NewEchoProxy(nativebridge.EchoFromPointer(fn)))
}

// SetStatusCallbackProxy registers the host callback
//
//	int callback(int handle, char *args, char *buffer)
//
// which writes its response into buffer and returns the number of bytes
// written, or the negated required size if the buffer is too small. A size of
// zero or less selects the configured buffer size.
//
//export SetStatusCallbackProxy
func SetStatusCallbackProxy(fn unsafe.Pointer, size C.int) {
	n := instance.statusBufferSize(int(size))
	lib.SetCallbackProxy(lib.NewStatusProxy(nativebridge.StatusFromPointer(fn), n))
}

// SetReleaseFunction registers
//
//	void release(char *ptr)
//
// to free callback results instead of free(), for hosts that do not allocate
// them with malloc. Passing NULL restores free().
//
//export SetReleaseFunction
func SetReleaseFunction(fn unsafe.Pointer) {
	nativebridge.SetRelease(fn)
}

// SetupLogging forwards log output as JSON lines to the callback with the
// given handle. An empty or NULL level selects the configured level.
//
//export SetupLogging
func SetupLogging(handle C.int, level *C.char) {
	if err := instance.setupLogging(int(handle), C.GoString(level)); err != nil {
		log.Error("unable to set up logging", "err", err)
	}
}

// Configure loads the TOML configuration at path and replaces the service.
// All handles of the previous service become invalid and logging is set up
// again with the configured level. On failure the error message is returned,
// it must be released with FreeBuffer.
//
//export Configure
func Configure(path *C.char) *C.char {
	if err := instance.configure(C.GoString(path)); err != nil {
		return C.CString(err.Error())
	}
	return nil
}

// Invoke calls a service method. The response must be released with
// FreeBuffer, NULL is returned for methods without a result.
//
//export Invoke
func Invoke(method *C.char, args *C.char) *C.char {
	res := instance.invoke(C.GoString(method), C.GoString(args))
	if res == "" {
		return nil
	}
	return C.CString(res)
}

// CreateBuffer creates a zero-initialized buffer of given size.
//
//export CreateBuffer
func CreateBuffer(size C.int) unsafe.Pointer {
	return nativebridge.CreateBuffer(int(size))
}

//export FreeBuffer
func FreeBuffer(ptr unsafe.Pointer) {
	nativebridge.FreeBuffer(ptr)
}
