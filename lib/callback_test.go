package lib

import (
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/horizenlabs/evmbridge/interop"
	"github.com/horizenlabs/evmbridge/trampoline"
)

// useProxy installs p for the duration of the test.
func useProxy(t *testing.T, p Proxy) {
	t.Helper()
	SetCallbackProxy(p)
	t.Cleanup(func() { SetCallbackProxy(nil) })
}

type call struct {
	handle int32
	args   string
}

// recordingEcho returns an echo callback that records its calls and answers
// with the reply for the handle.
func recordingEcho(replies map[int32]string, calls *[]call) trampoline.EchoCallback {
	return func(handle int32, args []byte) []byte {
		*calls = append(*calls, call{handle, string(args)})
		reply, ok := replies[handle]
		if !ok {
			return nil
		}
		return []byte(reply)
	}
}

func TestCallbackWithoutProxy(t *testing.T) {
	SetCallbackProxy(nil)
	ret := "unchanged"
	if err := Callback(1).Invoke("args", &ret); err != nil {
		t.Fatalf("expected no-op without proxy, got %v", err)
	}
	require.Equal(t, "unchanged", ret)
	require.NoError(t, Callback(2).Invoke("args", nil))
	require.Equal(t, common.Hash{}, (&BlockHashCallback{Callback: 3}).BlockHash(10))
	require.Nil(t, NewEchoProxy(nil))
	require.Nil(t, NewStatusProxy(nil, 16))
}

func TestCallbackResultCases(t *testing.T) {
	var calls []call
	useProxy(t, NewEchoProxy(recordingEcho(map[int32]string{2: `"pong"`, 3: `{"a":1}`}, &calls)))

	// no result and none expected
	require.NoError(t, Callback(1).Invoke(map[string]int{"x": 1}, nil))
	require.Equal(t, call{1, `{"x":1}`}, calls[0])

	// no result but one expected
	var str string
	require.ErrorIs(t, Callback(1).Invoke(nil, &str), ErrMissingResponse)

	// result but none expected
	require.ErrorIs(t, Callback(2).Invoke(nil, nil), ErrUnexpectedResponse)

	// result as expected
	require.NoError(t, Callback(2).Invoke("ping", &str))
	require.Equal(t, "pong", str)
	require.Equal(t, call{2, `"ping"`}, calls[len(calls)-1])

	// unknown fields in the reply are rejected
	var strict struct{ B int }
	require.Error(t, Callback(3).Invoke(nil, &strict))
}

func TestCallbackSerializationError(t *testing.T) {
	var calls []call
	useProxy(t, NewEchoProxy(recordingEcho(nil, &calls)))

	require.Error(t, Callback(1).Invoke(make(chan int), nil))
	require.Empty(t, calls, "host must not be called with unserializable arguments")
}

func TestCallbackUnmarshalJSON(t *testing.T) {
	var params BlockHashParams
	require.NoError(t, interop.Deserialize(`{"callback":5,"number":"0x10"}`, &params))
	require.NotNil(t, params.Callback)
	require.Equal(t, Callback(5), params.Callback.Callback)
	require.Equal(t, uint64(16), uint64(params.Number))

	require.Error(t, interop.Deserialize(`{"callback":"5"}`, &params))
	require.Error(t, interop.Deserialize(`{"callback":1.5}`, &params))
}

func TestStatusProxy(t *testing.T) {
	var sizes []int
	reply := `{"answer":42}`
	cb := func(handle int32, args []byte, buffer []byte) int32 {
		sizes = append(sizes, len(buffer))
		if len(buffer) < len(reply) {
			return -int32(len(reply))
		}
		return int32(copy(buffer, reply))
	}

	p := NewStatusProxy(cb, 4)
	res, err := p.Call(1, "{}")
	require.NoError(t, err)
	require.Equal(t, reply, res)
	require.Equal(t, []int{4, len(reply)}, sizes)

	sizes = nil
	res, err = NewStatusProxy(cb, 64).Call(1, "{}")
	require.NoError(t, err)
	require.Equal(t, reply, res)
	require.Equal(t, []int{64}, sizes)
}

func TestStatusProxyErrors(t *testing.T) {
	greedy := func(_ int32, _ []byte, buffer []byte) int32 { return -int32(len(buffer) + 1) }
	_, err := NewStatusProxy(greedy, 8).Call(1, "")
	require.ErrorIs(t, err, ErrBufferTooSmall)

	liar := func(_ int32, _ []byte, buffer []byte) int32 { return int32(len(buffer) + 1) }
	_, err = NewStatusProxy(liar, 8).Call(1, "")
	require.ErrorIs(t, err, ErrBufferOverflow)

	silent := func(int32, []byte, []byte) int32 { return 0 }
	res, err := NewStatusProxy(silent, 8).Call(1, "")
	require.NoError(t, err)
	require.Empty(t, res)
}

func TestStatusProxyCallback(t *testing.T) {
	cb := func(handle int32, args []byte, buffer []byte) int32 {
		if handle != 7 {
			return 0
		}
		return int32(copy(buffer, strings.ToUpper(string(args))))
	}
	useProxy(t, NewStatusProxy(cb, 32))

	var ret string
	require.NoError(t, Callback(7).Invoke("abc", &ret))
	require.Equal(t, "ABC", ret)

	err := Callback(8).Invoke("abc", &ret)
	require.True(t, errors.Is(err, ErrMissingResponse))
}

func TestBlockHashCallback(t *testing.T) {
	var nilCallback *BlockHashCallback
	require.Equal(t, crypto.Keccak256Hash([]byte("123")), nilCallback.BlockHash(123))

	want := common.HexToHash("0xabcdef")
	var calls []call
	useProxy(t, NewEchoProxy(recordingEcho(map[int32]string{4: `"` + want.Hex() + `"`, 5: `"nonsense"`}, &calls)))

	require.Equal(t, want, (&BlockHashCallback{Callback: 4}).BlockHash(255))
	require.Equal(t, call{4, `"0xff"`}, calls[0])

	// undecodable replies are logged and give the zero hash
	require.Equal(t, common.Hash{}, (&BlockHashCallback{Callback: 5}).BlockHash(1))
}
