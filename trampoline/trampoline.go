// Package trampoline forwards calls into caller-supplied callbacks.
//
// The host side of the bridge hands us function references that we may only
// invoke, never keep. Both call shapes return a fixed sentinel when the
// reference is missing and otherwise pass handle, arguments and result
// through untouched.
package trampoline

// EchoCallback is a callee that answers with an opaque payload. A nil result
// means "no response".
type EchoCallback func(handle int32, args []byte) []byte

// StatusCallback is a callee that writes its response into a caller-owned
// buffer and reports a status code.
type StatusCallback func(handle int32, args []byte, buffer []byte) int32

// InvokeEcho calls cb with the given handle and arguments and returns its
// result unchanged. A nil callback yields nil without side effects.
func InvokeEcho(cb EchoCallback, handle int32, args []byte) []byte {
	if cb == nil {
		return nil
	}
	return cb(handle, args)
}

// InvokeStatus calls cb with the given handle, arguments and buffer and
// returns its status unchanged. A nil callback yields 0 and leaves the buffer
// untouched.
func InvokeStatus(cb StatusCallback, handle int32, args []byte, buffer []byte) int32 {
	if cb == nil {
		return 0
	}
	return cb(handle, args, buffer)
}
