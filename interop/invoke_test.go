package interop

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
)

type MockLibrary struct{}

var MockError = errors.New("mock error")

type MockParams struct {
	Foo    int         `json:"foo"`
	Bar    string      `json:"bar"`
	Nested *MockParams `json:"nested"`
}

func (m *MockLibrary) NoParam()                                   {}
func (m *MockLibrary) NoParamResult() string                      { return "toot gaya" }
func (m *MockLibrary) NoParamNilError() error                     { return nil }
func (m *MockLibrary) NoParamError() error                        { return fmt.Errorf("%w: kaputt", MockError) }
func (m *MockLibrary) NoParamBadErrorReturn() (error, string)     { return nil, "" /* invalid */ }
func (m *MockLibrary) NoParamTwoResults() (string, string)        { return "", "" /* invalid */ }
func (m *MockLibrary) NoParamThreeResults() (string, int, error)  { return "", 0, nil /* invalid */ }
func (m *MockLibrary) OneParam(a int)                             {}
func (m *MockLibrary) OneParamEcho(str string) string             { return str }
func (m *MockLibrary) TwoParams(a int, b int)                     { /* invalid: more than one parameter */ }
func (m *MockLibrary) ComplexParam(params MockParams) *MockParams { return params.Nested }
func (m *MockLibrary) ArrayParam(params []int) int                { return len(params) }
func (m *MockLibrary) Panics(msg string) int                      { panic(msg) }
func (m *MockLibrary) ConditionalErrorNoResult(fail int) error {
	if fail != 0 {
		return fmt.Errorf("%w: kaputt %v", MockError, fail)
	}
	return nil
}
func (m *MockLibrary) ConditionalErrorWithResult(nr int) (string, error) {
	if nr == 7 {
		return "", fmt.Errorf("%w: oh noes", MockError)
	}
	return "success", nil
}

func TestCallMethod(t *testing.T) {
	m := new(MockLibrary)
	checks := []struct {
		method string
		args   string
		err    error
		result any
	}{
		{method: "ThisDoesNotExist", err: ErrMethodNotFound},

		{method: "NoParam"},
		{method: "NoParam", args: "123", err: ErrInvalidArguments},
		{method: "NoParam", args: "  "},
		{method: "NoParamResult", result: "toot gaya"},
		{method: "NoParamResult", args: "123", err: ErrInvalidArguments},
		{method: "NoParamNilError"},
		{method: "NoParamNilError", args: "123", err: ErrInvalidArguments},
		{method: "NoParamError", err: MockError},
		{method: "NoParamError", args: "123", err: ErrInvalidArguments},
		{method: "NoParamBadErrorReturn", err: ErrInvocationError},
		{method: "NoParamTwoResults", err: ErrInvocationError},
		{method: "NoParamThreeResults", err: ErrInvocationError},

		{method: "OneParam", err: ErrInvalidArguments},
		{method: "OneParam", args: "123"},
		{method: "OneParam", args: "false", err: ErrInvalidArguments},
		{method: "OneParam", args: "1 2", err: ErrInvalidArguments},
		{method: "OneParamEcho", err: ErrInvalidArguments},
		{method: "OneParamEcho", args: "123", err: ErrInvalidArguments},
		{method: "OneParamEcho", args: "\"foo\"", result: "foo"},
		{method: "OneParamEcho", args: "\"bar\"", result: "bar"},

		{method: "TwoParams", err: ErrInvocationError},
		{method: "TwoParams", args: "123", err: ErrInvocationError},

		{method: "ComplexParam", err: ErrInvalidArguments},
		{method: "ComplexParam", args: "123", err: ErrInvalidArguments},
		{method: "ComplexParam", args: "{\"foo\":42}", result: (*MockParams)(nil)},
		{method: "ComplexParam", args: "{\"foo\":42,\"breakit\":true}", err: ErrInvalidArguments},
		{method: "ComplexParam", args: "{\"foo\":42,\"nested\":{\"bar\":\"baz\"}}", result: &MockParams{Bar: "baz"}},
		{method: "ComplexParam", args: "null", err: ErrInvalidArguments},

		{method: "ArrayParam", args: "[4,8,15,16,23,42]", result: 6},
		{method: "ArrayParam", args: "[]", result: 0},
		{method: "ArrayParam", args: "null", err: ErrInvalidArguments},
		{method: "ArrayParam", args: "1,2,3,4", err: ErrInvalidArguments},
		{method: "ArrayParam", args: "", err: ErrInvalidArguments},
		{method: "ArrayParam", args: "{\"args\":[1,2,3]}", err: ErrInvalidArguments},

		{method: "ConditionalErrorNoResult", err: ErrInvalidArguments},
		{method: "ConditionalErrorNoResult", args: "0"},
		{method: "ConditionalErrorNoResult", args: "1", err: MockError},

		{method: "ConditionalErrorWithResult", err: ErrInvalidArguments},
		{method: "ConditionalErrorWithResult", args: " null  ", err: ErrInvalidArguments},
		{method: "ConditionalErrorWithResult", args: "\"null\"", err: ErrInvalidArguments},
		{method: "ConditionalErrorWithResult", args: "  0", result: "success"},
		{method: "ConditionalErrorWithResult", args: "6  ", result: "success"},
		{method: "ConditionalErrorWithResult", args: " 7 ", err: MockError},
		{method: "ConditionalErrorWithResult", args: "8", result: "success"},

		{method: "Panics", args: "\"at the disco\"", err: ErrInvocationError},
	}
	for _, check := range checks {
		t.Run(check.method, func(t *testing.T) {
			result, err := callMethod(m, check.method, check.args)
			if !errors.Is(err, check.err) {
				t.Errorf("unexpected error: want %v got %v", check.err, err)
			}
			if !reflect.DeepEqual(result, check.result) {
				t.Errorf("unexpected result: want %v got %v", check.result, result)
			}
		})
	}
}

func TestInvokeEnvelope(t *testing.T) {
	m := new(MockLibrary)

	require.Equal(t, "", Invoke(m, "NoParam", ""))
	require.Equal(t, `{"result":"toot gaya"}`, Invoke(m, "NoParamResult", ""))
	require.Equal(t, `{"result":null}`, Invoke(m, "ComplexParam", `{"foo":1}`))
	require.Equal(t, `{"result":{"foo":0,"bar":"baz","nested":null}}`,
		Invoke(m, "ComplexParam", `{"nested":{"bar":"baz"}}`))

	var resp Response
	require.NoError(t, Deserialize(Invoke(m, "ConditionalErrorWithResult", "7"), &resp))
	require.Empty(t, resp.Result)
	require.Equal(t, "mock error: oh noes", resp.Error)

	require.NoError(t, Deserialize(Invoke(m, "Missing", ""), &resp))
	require.Contains(t, resp.Error, ErrMethodNotFound.Error())
}

func TestMethods(t *testing.T) {
	infos := Methods(new(MockLibrary))
	byName := make(map[string]MethodInfo)
	for _, info := range infos {
		byName[info.Name] = info
	}
	require.NotContains(t, byName, "TwoParams")
	require.NotContains(t, byName, "NoParamTwoResults")
	require.NotContains(t, byName, "NoParamBadErrorReturn")

	require.Equal(t, MethodInfo{Name: "ConditionalErrorWithResult", Param: "int", Result: "string", HasError: true},
		byName["ConditionalErrorWithResult"])
	require.Equal(t, MethodInfo{Name: "ComplexParam", Param: "interop.MockParams", Result: "*interop.MockParams"},
		byName["ComplexParam"])
	require.Equal(t, MethodInfo{Name: "NoParam"}, byName["NoParam"])

	for i := 1; i < len(infos); i++ {
		if infos[i-1].Name >= infos[i].Name {
			t.Fatalf("methods not sorted: %s before %s", infos[i-1].Name, infos[i].Name)
		}
	}
}

func TestDeserializeStrict(t *testing.T) {
	var p MockParams
	require.NoError(t, Deserialize(`{"foo":1}`, &p))
	require.Equal(t, 1, p.Foo)
	require.Error(t, Deserialize(`{"unknown":1}`, &p))
	require.Error(t, Deserialize(`{"foo":1} {"foo":2}`, &p))

	str, err := Serialize(&MockParams{Foo: 3})
	require.NoError(t, err)
	require.Equal(t, `{"foo":3,"bar":"","nested":null}`, str)
}

func TestPanicStackIsLogged(t *testing.T) {
	root := log.Root()
	t.Cleanup(func() { log.SetDefault(root) })
	var buf bytes.Buffer
	log.SetDefault(log.NewLogger(log.JSONHandler(&buf)))

	_, err := callMethod(new(MockLibrary), "Panics", `"at the disco"`)
	require.ErrorIs(t, err, ErrInvocationError)
	require.Equal(t, "invocation error: Panics panicked: at the disco", err.Error())
	require.NotContains(t, err.Error(), "goroutine")

	out := buf.String()
	require.Contains(t, out, `"msg":"Invocation panicked"`)
	require.Contains(t, out, `"method":"Panics"`)
	require.True(t, strings.Contains(out, "goroutine"), "stack missing from log: %s", out)
}
