//go:build !cgo
// +build !cgo

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "libbridge must be built with cgo enabled and -buildmode=c-shared")
	os.Exit(1)
}
