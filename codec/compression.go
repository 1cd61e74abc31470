package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the block compression of a Compressed codec.
type Compression uint8

const (
	// CompressionNone stores the payload as is, still framed.
	CompressionNone Compression = 0
	// CompressionLZ4 is fast, with a lower ratio.
	CompressionLZ4 Compression = 1
	// CompressionZSTD has the better ratio; likelihood tables shrink well.
	CompressionZSTD Compression = 2
)

// String returns the stable name used in codec names.
func (c Compression) String() string {
	switch c {
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return "none"
	}
}

// ParseCompression is the inverse of String.
func ParseCompression(s string) (Compression, bool) {
	switch s {
	case "none", "":
		return CompressionNone, true
	case "lz4":
		return CompressionLZ4, true
	case "zstd":
		return CompressionZSTD, true
	default:
		return 0, false
	}
}

// ErrCorrupt is returned for frames that cannot be decoded.
var ErrCorrupt = errors.New("corrupt compressed frame")

// Frame: [algo uint8][uncompressed uint32][compressed uint32][data...]
// compressed == 0 means data is stored raw.
const frameHeaderSize = 9

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Compress frames data, compressing it with algo when that saves at least
// a tenth of the size.
func Compress(data []byte, algo Compression) ([]byte, error) {
	var (
		packed []byte
		err    error
	)
	switch algo {
	case CompressionLZ4:
		packed, err = compressLZ4(data)
	case CompressionZSTD:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	case CompressionNone:
	default:
		return nil, fmt.Errorf("unknown compression %d", algo)
	}
	if err != nil {
		return nil, err
	}

	if len(packed) == 0 || float64(len(packed)) > float64(len(data))*0.9 {
		out := make([]byte, frameHeaderSize+len(data))
		out[0] = byte(algo)
		binary.LittleEndian.PutUint32(out[1:], uint32(len(data)))
		copy(out[frameHeaderSize:], data)
		return out, nil
	}

	out := make([]byte, frameHeaderSize+len(packed))
	out[0] = byte(algo)
	binary.LittleEndian.PutUint32(out[1:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[5:], uint32(len(packed)))
	copy(out[frameHeaderSize:], packed)
	return out, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, buf, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // incompressible
	}
	return buf[:n], nil
}

// Decompress reverses Compress. The algorithm is read from the frame.
func Decompress(frame []byte) ([]byte, error) {
	if len(frame) < frameHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(frame))
	}
	algo := Compression(frame[0])
	size := binary.LittleEndian.Uint32(frame[1:])
	packed := binary.LittleEndian.Uint32(frame[5:])
	body := frame[frameHeaderSize:]

	if packed == 0 {
		if uint32(len(body)) < size {
			return nil, fmt.Errorf("%w: short raw frame", ErrCorrupt)
		}
		return body[:size], nil
	}
	if uint32(len(body)) < packed {
		return nil, fmt.Errorf("%w: short compressed frame", ErrCorrupt)
	}
	body = body[:packed]

	switch algo {
	case CompressionLZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, err
		}
		if uint32(n) != size {
			return nil, fmt.Errorf("%w: size mismatch", ErrCorrupt)
		}
		return out, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(body, make([]byte, 0, size))
		if err != nil {
			return nil, err
		}
		if uint32(len(out)) != size {
			return nil, fmt.Errorf("%w: size mismatch", ErrCorrupt)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %d", ErrCorrupt, algo)
	}
}

// Compressed wraps another codec and frames its output with Compress.
type Compressed struct {
	Inner Codec
	Type  Compression
}

// Marshal encodes v with Inner and compresses the result.
func (c Compressed) Marshal(v any) ([]byte, error) {
	raw, err := c.inner().Marshal(v)
	if err != nil {
		return nil, err
	}
	return Compress(raw, c.Type)
}

// Unmarshal decompresses data and decodes it with Inner.
func (c Compressed) Unmarshal(data []byte, v any) error {
	raw, err := Decompress(data)
	if err != nil {
		return err
	}
	return c.inner().Unmarshal(raw, v)
}

// Name is the inner name plus the algorithm, e.g. "go-json+zstd".
func (c Compressed) Name() string {
	return c.inner().Name() + "+" + c.Type.String()
}

func (c Compressed) inner() Codec {
	if c.Inner == nil {
		return Default
	}
	return c.Inner
}
