// Package nativebridge turns host-owned C function pointers into trampoline
// callbacks.
//
// The host registers plain C function pointers with the shared library. Go
// cannot call those directly, so depending on the build the calls go through
// a small C shim (cgo) or through purego's SyscallN when cgo is disabled. On
// platforms where neither is available every pointer behaves like NULL.
package nativebridge

// Backend returns a short identifier of the compiled call mechanism
// ("cgo", "purego" or "none").
func Backend() string {
	return backend
}
