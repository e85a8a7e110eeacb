//go:build cgo
// +build cgo

package nativebridge

/*
#cgo CFLAGS: -g -Wall -O2 -fpic
#include <stdlib.h>

typedef char* (*echoCallback)(int handle, char *args);
typedef int (*statusCallback)(int handle, char *args, char *buffer);
typedef void (*releaseFunction)(char *ptr);

// Go cannot invoke C function pointers, every call into the host goes
// through one of these.
static char* invokeEchoCallback(echoCallback cb, int handle, char *args) {
	if (cb == NULL) return NULL;
	return cb(handle, args);
}

static int invokeStatusCallback(statusCallback cb, int handle, char *args, char *buffer) {
	if (cb == NULL) return 0;
	return cb(handle, args, buffer);
}

static void releaseResult(releaseFunction fn, char *ptr) {
	if (fn == NULL) {
		free(ptr);
		return;
	}
	fn(ptr);
}
*/
import "C"

import (
	"sync/atomic"
	"unsafe"

	"github.com/horizenlabs/evmbridge/trampoline"
)

const backend = "cgo"

// release frees echo results, nil selects free().
var release unsafe.Pointer

// EchoFromPointer wraps a C function of type
//
//	char* (*)(int handle, char *args)
//
// The result string is allocated by the callee and released once it has been
// copied into Go memory, with the function set by SetRelease or free() if
// there is none. A nil pointer yields a nil callback.
func EchoFromPointer(fn unsafe.Pointer) trampoline.EchoCallback {
	if fn == nil {
		return nil
	}
	cb := C.echoCallback(fn)
	return func(handle int32, args []byte) []byte {
		cArgs := C.CString(string(args))
		defer C.free(unsafe.Pointer(cArgs))

		res := C.invokeEchoCallback(cb, C.int(handle), cArgs)
		if res == nil {
			return nil
		}
		defer C.releaseResult(C.releaseFunction(atomic.LoadPointer(&release)), res)
		return []byte(C.GoString(res))
	}
}

// StatusFromPointer wraps a C function of type
//
//	int (*)(int handle, char *args, char *buffer)
//
// The buffer is handed to the callee as is, an empty buffer is passed as NULL.
// The callee must not keep the buffer pointer after returning.
func StatusFromPointer(fn unsafe.Pointer) trampoline.StatusCallback {
	if fn == nil {
		return nil
	}
	cb := C.statusCallback(fn)
	return func(handle int32, args []byte, buffer []byte) int32 {
		cArgs := C.CString(string(args))
		defer C.free(unsafe.Pointer(cArgs))

		var cBuf *C.char
		if len(buffer) > 0 {
			cBuf = (*C.char)(unsafe.Pointer(&buffer[0]))
		}
		return int32(C.invokeStatusCallback(cb, C.int(handle), cArgs, cBuf))
	}
}

// SetRelease registers a C function of type
//
//	void (*)(char *ptr)
//
// used to release echo results instead of free(), for hosts that allocate
// them with their own allocator. Nil restores free().
func SetRelease(fn unsafe.Pointer) {
	atomic.StorePointer(&release, fn)
}

// CreateBuffer allocates a zero-initialized C buffer of the given size.
func CreateBuffer(size int) unsafe.Pointer {
	if size <= 0 {
		return nil
	}
	return C.calloc(C.size_t(size), 1)
}

// FreeBuffer releases a buffer obtained from CreateBuffer.
func FreeBuffer(ptr unsafe.Pointer) {
	C.free(ptr)
}
