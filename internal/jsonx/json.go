// Package jsonx is the single JSON codec for the HTTP surface and the bolt
// store records. It behaves like encoding/json, so json.Marshaler
// implementations such as uint256.Int and decimal.Decimal are honored.
package jsonx

import (
	"io"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

func Marshal(v any) ([]byte, error) {
	return codec.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return codec.Unmarshal(data, v)
}

func NewDecoder(r io.Reader) *jsoniter.Decoder {
	return codec.NewDecoder(r)
}

func NewEncoder(w io.Writer) *jsoniter.Encoder {
	return codec.NewEncoder(w)
}
