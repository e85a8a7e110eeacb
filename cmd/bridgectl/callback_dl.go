//go:build (darwin || linux) && (amd64 || arm64)
// +build darwin linux
// +build amd64 arm64

package main

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/horizenlabs/evmbridge/lib"
	nativebridge "github.com/horizenlabs/evmbridge/native_bridge"
)

// loadCallbackLibrary opens a host library and registers its exported
//
//	char* callback(int handle, char *args)
//
// as callback proxy. If release is set, the named function frees callback
// results. The returned function unregisters the proxy and closes the library.
func loadCallbackLibrary(path, symbol, release string) (func(), error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("loading callback library %s: %w", path, err)
	}
	fail := func(err error) (func(), error) {
		purego.Dlclose(handle)
		return nil, err
	}
	callback, err := purego.Dlsym(handle, symbol)
	if err != nil {
		return fail(fmt.Errorf("callback library %s: %w", path, err))
	}
	if release != "" {
		releaseFn, err := purego.Dlsym(handle, release)
		if err != nil {
			return fail(fmt.Errorf("callback library %s: %w", path, err))
		}
		nativebridge.SetRelease(unsafe.Pointer(releaseFn))
	}
	lib.SetCallbackProxy(lib.NewEchoProxy(nativebridge.EchoFromPointer(unsafe.Pointer(callback))))

	return func() {
		lib.SetCallbackProxy(nil)
		nativebridge.SetRelease(nil)
		purego.Dlclose(handle)
	}, nil
}
