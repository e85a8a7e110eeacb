//go:build !((darwin || linux) && (amd64 || arm64))
// +build !darwin,!linux !amd64,!arm64

package main

import "errors"

func loadCallbackLibrary(path, symbol, release string) (func(), error) {
	return nil, errors.New("callback libraries are not supported on this platform")
}
