//go:build !cgo && (darwin || linux) && (amd64 || arm64)
// +build !cgo
// +build darwin linux
// +build amd64 arm64

package nativebridge

import (
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/horizenlabs/evmbridge/trampoline"
)

const backend = "purego"

// release is the host function used to free echo results, zero if the host
// keeps ownership of them.
var release atomic.Uintptr

// EchoFromPointer wraps a C function of type
//
//	char* (*)(int handle, char *args)
//
// and calls it through purego. The result is copied into Go memory and then
// handed to the release function registered with SetRelease, if any.
func EchoFromPointer(fn unsafe.Pointer) trampoline.EchoCallback {
	if fn == nil {
		return nil
	}
	ptr := uintptr(fn)
	return func(handle int32, args []byte) []byte {
		cArgs := cString(args)
		defer runtime.KeepAlive(cArgs)

		res, _, _ := purego.SyscallN(ptr, uintptr(handle), uintptr(unsafe.Pointer(&cArgs[0])))
		if res == 0 {
			return nil
		}
		out := goBytes(res)
		if fr := release.Load(); fr != 0 {
			purego.SyscallN(fr, res)
		}
		return out
	}
}

// StatusFromPointer wraps a C function of type
//
//	int (*)(int handle, char *args, char *buffer)
//
// An empty buffer is passed as NULL.
func StatusFromPointer(fn unsafe.Pointer) trampoline.StatusCallback {
	if fn == nil {
		return nil
	}
	ptr := uintptr(fn)
	return func(handle int32, args []byte, buffer []byte) int32 {
		cArgs := cString(args)
		defer runtime.KeepAlive(cArgs)
		defer runtime.KeepAlive(buffer)

		var buf uintptr
		if len(buffer) > 0 {
			buf = uintptr(unsafe.Pointer(&buffer[0]))
		}
		status, _, _ := purego.SyscallN(ptr, uintptr(handle), uintptr(unsafe.Pointer(&cArgs[0])), buf)
		return int32(status)
	}
}

// SetRelease registers the host function that frees echo results:
//
//	void (*)(char *result)
//
// Passing nil leaves result memory owned by the host.
func SetRelease(fn unsafe.Pointer) {
	release.Store(uintptr(fn))
}

// CreateBuffer is unavailable without cgo and always returns nil.
func CreateBuffer(int) unsafe.Pointer { return nil }

// FreeBuffer is a no-op without cgo.
func FreeBuffer(unsafe.Pointer) {}

// cString returns args as a NUL-terminated byte slice. Like C.CString, the
// callee sees the payload only up to the first embedded NUL.
func cString(args []byte) []byte {
	out := make([]byte, len(args)+1)
	copy(out, args)
	return out
}

// goBytes copies the NUL-terminated string at p into Go memory.
func goBytes(p uintptr) []byte {
	base := unsafe.Pointer(p)
	n := 0
	for *(*byte)(unsafe.Add(base, n)) != 0 {
		n++
	}
	return append([]byte{}, unsafe.Slice((*byte)(base), n)...)
}
