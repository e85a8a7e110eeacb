package interop

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

var errTrailingData = errors.New("unexpected data after JSON value")

// Serialize encodes input as a JSON string.
func Serialize(input any) (string, error) {
	jsonBytes, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	return string(jsonBytes), nil
}

// Deserialize decodes a single JSON value from input into result. Unknown
// object fields and trailing data are errors: both are most likely a sign of
// buggy interface code on the host side.
func Deserialize(input string, result any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(input)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(result); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errTrailingData
	}
	return nil
}
