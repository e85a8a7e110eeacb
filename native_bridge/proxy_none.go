//go:build !cgo && !((darwin || linux) && (amd64 || arm64))
// +build !cgo
// +build !darwin,!linux !amd64,!arm64

package nativebridge

import (
	"unsafe"

	"github.com/horizenlabs/evmbridge/trampoline"
)

const backend = "none"

// EchoFromPointer always returns nil: without cgo there is no way to call
// into C on this platform, so every invocation yields the sentinel.
func EchoFromPointer(unsafe.Pointer) trampoline.EchoCallback { return nil }

// StatusFromPointer always returns nil, see EchoFromPointer.
func StatusFromPointer(unsafe.Pointer) trampoline.StatusCallback { return nil }

// SetRelease is a no-op, no callback results are ever produced.
func SetRelease(unsafe.Pointer) {}

// CreateBuffer always returns nil, there is no C allocator to use.
func CreateBuffer(int) unsafe.Pointer { return nil }

// FreeBuffer is a no-op, see CreateBuffer.
func FreeBuffer(unsafe.Pointer) {}
