// Package jsoncodec is the single JSON implementation used for envelopes and
// records on the wire.
package jsoncodec

import (
	"errors"
	"io"

	"github.com/bytedance/sonic"
)

var defaultConfig = sonic.ConfigStd

// objectConfig keeps numbers as json.Number so 64-bit integers such as code
// addresses are not rounded through float64.
var objectConfig = sonic.Config{
	EscapeHTML:       true,
	SortMapKeys:      true,
	CompactMarshaler: true,
	CopyString:       true,
	ValidateString:   true,
	UseNumber:        true,
}.Froze()

// ErrNotObject is returned by UnmarshalObject for valid JSON that is not an
// object (arrays, scalars, null).
var ErrNotObject = errors.New("json value is not an object")

func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return defaultConfig.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

// UnmarshalObject decodes data into a generic JSON object. Numbers are
// returned as json.Number.
func UnmarshalObject(data []byte) (map[string]any, error) {
	var raw any
	if err := objectConfig.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	obj, ok := raw.(map[string]any)
	if !ok || obj == nil {
		return nil, ErrNotObject
	}
	return obj, nil
}

func Encode(w io.Writer, v any) error {
	enc := defaultConfig.NewEncoder(w)
	return enc.Encode(v)
}
