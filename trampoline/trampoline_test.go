package trampoline

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestNilCallbackReturnsSentinel(t *testing.T) {
	if res := InvokeEcho(nil, 5, []byte("x")); res != nil {
		t.Fatalf("expected nil result, got %q", res)
	}

	buf := []byte{1, 2, 3}
	if status := InvokeStatus(nil, 5, []byte("x"), buf); status != 0 {
		t.Fatalf("expected status 0, got %d", status)
	}
	if !bytes.Equal(buf, []byte{1, 2, 3}) {
		t.Fatalf("buffer was modified: %v", buf)
	}
}

func TestStatusPassThrough(t *testing.T) {
	double := func(handle int32, _ []byte, _ []byte) int32 { return handle * 2 }
	require.Equal(t, int32(42), InvokeStatus(double, 21, nil, nil))
	require.Equal(t, int32(-6), InvokeStatus(double, -3, []byte("ignored"), make([]byte, 4)))
}

func TestEchoPassThrough(t *testing.T) {
	echo := func(_ int32, args []byte) []byte { return args }
	require.Equal(t, []byte("hello"), InvokeEcho(echo, 0, []byte("hello")))
	require.Nil(t, InvokeEcho(echo, 1, nil))
}

func TestArgumentsForwardedUnchanged(t *testing.T) {
	var (
		gotHandle int32
		gotArgs   []byte
	)
	cb := func(handle int32, args []byte) []byte {
		gotHandle, gotArgs = handle, args
		return []byte("reply")
	}
	args := []byte{0, 0xff, 'a', 0}
	res := InvokeEcho(cb, 1<<30, args)

	require.Equal(t, int32(1<<30), gotHandle)
	require.Equal(t, []byte{0, 0xff, 'a', 0}, gotArgs)
	require.Equal(t, []byte("reply"), res)
}

func TestStatusCalleeWritesBuffer(t *testing.T) {
	write := func(handle int32, args []byte, buffer []byte) int32 {
		binary.BigEndian.PutUint32(buffer, uint32(handle))
		return int32(copy(buffer[4:], args) + 4)
	}
	buf := make([]byte, 16)
	n := InvokeStatus(write, 7, []byte("abc"), buf)

	require.Equal(t, int32(7), n)
	require.Equal(t, []byte{0, 0, 0, 7, 'a', 'b', 'c'}, buf[:n])
}

func TestCalleePanicPropagates(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic from callee to propagate")
		}
	}()
	InvokeEcho(func(int32, []byte) []byte { panic("boom") }, 1, nil)
}

func TestIdempotentAndReentrant(t *testing.T) {
	double := func(handle int32, _ []byte, _ []byte) int32 { return handle * 2 }
	echo := func(_ int32, args []byte) []byte { return append([]byte(nil), args...) }

	var g errgroup.Group
	for i := 0; i < 64; i++ {
		handle := int32(i)
		g.Go(func() error {
			for j := 0; j < 100; j++ {
				if got := InvokeStatus(double, handle, nil, nil); got != handle*2 {
					t.Errorf("handle %d: got %d", handle, got)
				}
				if got := InvokeEcho(echo, handle, []byte("payload")); string(got) != "payload" {
					t.Errorf("handle %d: got %q", handle, got)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
