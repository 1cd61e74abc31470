// Package codec centralizes artifact encoding.
//
// Persisted artifacts do not record their codec, so readers must be
// configured with the codec the writer used. Compressed payloads carry their
// algorithm in a header and decode with any Compressed codec.
package codec

import (
	"fmt"
	"strings"
)

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name. A "+zstd" or "+lz4"
// suffix wraps the base codec in Compressed.
func ByName(name string) (Codec, bool) {
	base, algo, compressed := strings.Cut(name, "+")

	var c Codec
	switch base {
	case "json":
		c = JSON{}
	case "go-json":
		c = GoJSON{}
	default:
		return nil, false
	}
	if !compressed {
		return c, true
	}

	t, ok := ParseCompression(algo)
	if !ok {
		return nil, false
	}
	return Compressed{Inner: c, Type: t}, true
}

// MustMarshal is a helper for tests and fixtures.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
