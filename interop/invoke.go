// Package interop implements the JSON calling convention between the host and
// the bridge service: method names and JSON encoded arguments in, a JSON
// response envelope out.
package interop

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

var (
	ErrMethodNotFound   = errors.New("method not found")
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrInvocationError  = errors.New("invocation error")
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Response is the envelope returned to the host. At most one field is set.
type Response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// MethodInfo describes a method that can be called through Invoke.
type MethodInfo struct {
	Name     string
	Param    string // empty if the method takes no argument
	Result   string // empty if the method has no result
	HasError bool
}

// Invoke calls the exported method of target with the given name. The args
// string holds the JSON encoded parameter, it must be empty for methods
// without parameters. The return value is a JSON encoded Response, or an
// empty string if the method succeeded and has no result.
func Invoke(target any, method, args string) string {
	result, err := callMethod(target, method, args)
	if err != nil {
		return encodeResponse(Response{Error: err.Error()})
	}
	if result == nil {
		return ""
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return encodeResponse(Response{Error: fmt.Sprintf("%v: unable to encode result: %v", ErrInvocationError, err)})
	}
	return encodeResponse(Response{Result: raw})
}

// Methods lists the methods of target that can be called through Invoke,
// sorted by name.
func Methods(target any) []MethodInfo {
	typ := reflect.TypeOf(target)
	var infos []MethodInfo
	for i := 0; i < typ.NumMethod(); i++ {
		m := typ.Method(i)
		// the receiver is the first input of a method obtained from the type
		mt := m.Func.Type()
		if mt.NumIn() > 2 || !supportedResults(mt) {
			continue
		}
		info := MethodInfo{Name: m.Name}
		if mt.NumIn() == 2 {
			info.Param = mt.In(1).String()
		}
		for j := 0; j < mt.NumOut(); j++ {
			if mt.Out(j) == errorType {
				info.HasError = true
			} else {
				info.Result = mt.Out(j).String()
			}
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func encodeResponse(resp Response) string {
	str, err := Serialize(resp)
	if err != nil {
		// Response only holds a string and raw JSON that was produced by
		// json.Marshal, so this cannot happen.
		panic(err)
	}
	return str
}

// supportedResults reports whether the results of a method are one of
// (), (R), (error) or (R, error).
func supportedResults(mt reflect.Type) bool {
	switch mt.NumOut() {
	case 0, 1:
		return true
	case 2:
		return mt.Out(0) != errorType && mt.Out(1) == errorType
	}
	return false
}

func callMethod(target any, method, args string) (result any, err error) {
	m := reflect.ValueOf(target).MethodByName(method)
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, method)
	}
	mt := m.Type()
	if mt.NumIn() > 1 {
		return nil, fmt.Errorf("%w: %s takes more than one parameter", ErrInvocationError, method)
	}
	if !supportedResults(mt) {
		return nil, fmt.Errorf("%w: %s has an unsupported result signature", ErrInvocationError, method)
	}

	var in []reflect.Value
	trimmed := strings.TrimSpace(args)
	if mt.NumIn() == 0 {
		if trimmed != "" {
			return nil, fmt.Errorf("%w: %s takes no parameters", ErrInvalidArguments, method)
		}
	} else {
		if trimmed == "" || trimmed == "null" {
			return nil, fmt.Errorf("%w: %s requires a parameter of type %v", ErrInvalidArguments, method, mt.In(0))
		}
		param := reflect.New(mt.In(0))
		if err := Deserialize(args, param.Interface()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		in = append(in, param.Elem())
	}

	// a panic must never unwind into the host
	defer func() {
		if r := recover(); r != nil {
			log.Error("Invocation panicked", "method", method, "err", r, "stack", string(debug.Stack()))
			result = nil
			err = fmt.Errorf("%w: %s panicked: %v", ErrInvocationError, method, r)
		}
	}()
	out := m.Call(in)

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if mt.Out(0) == errorType {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	default:
		if err := asError(out[1]); err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	}
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}
