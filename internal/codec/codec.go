// Package codec turns history records into bytes and back. Records are JSON;
// records past a size threshold are wrapped in a zstd frame, recognised on
// read by its magic number so both forms can sit side by side in one store.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// Options configures compression behavior
type Options struct {
	Enabled bool
	// Minimum encoded size in bytes before compressing
	MinSize int
	// Compression level (1=fastest, 4=best)
	Level int
}

// DefaultOptions compresses records of 4KB and more at the default level.
func DefaultOptions() Options {
	return Options{
		Enabled: true,
		MinSize: 4 * 1024,
		Level:   2,
	}
}

// Codec encodes and decodes records. It is safe for concurrent use.
type Codec struct {
	opts     Options
	encoders sync.Pool
	decoders sync.Pool
}

// New validates opts by building one encoder and decoder up front.
func New(opts Options) (*Codec, error) {
	level := zstd.EncoderLevelFromZstd(opts.Level)

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("creating encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("creating decoder: %w", err)
	}

	c := &Codec{opts: opts}
	c.encoders.New = func() any {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
		return enc
	}
	c.decoders.New = func() any {
		dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		return dec
	}
	c.encoders.Put(enc)
	c.decoders.Put(dec)

	return c, nil
}

// Plain returns a codec that never compresses. It still reads compressed records.
func Plain() *Codec {
	c, _ := New(Options{Level: 1})
	return c
}

// Encode marshals v to JSON, compressing the result when it is large enough.
func (c *Codec) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	return c.compress(data), nil
}

// Decode unmarshals data into v, decompressing it first when framed.
func (c *Codec) Decode(data []byte, v any) error {
	plain, err := c.decompress(data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plain, v); err != nil {
		return fmt.Errorf("decoding %T: %w", v, err)
	}
	return nil
}

func (c *Codec) compress(data []byte) []byte {
	if !c.opts.Enabled || len(data) < c.opts.MinSize {
		return data
	}

	enc := c.encoders.Get().(*zstd.Encoder)
	defer c.encoders.Put(enc)

	out := enc.EncodeAll(data, make([]byte, 0, len(data)/2))
	// Incompressible records stay plain.
	if len(out) >= len(data) {
		return data
	}
	return out
}

func (c *Codec) decompress(data []byte) ([]byte, error) {
	if !Compressed(data) {
		return data, nil
	}

	dec := c.decoders.Get().(*zstd.Decoder)
	defer c.decoders.Put(dec)

	plain, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing record: %w", err)
	}
	return plain, nil
}

// Compressed reports whether data starts with a zstd frame header.
func Compressed(data []byte) bool {
	return len(data) > len(zstdMagic) && bytes.Equal(data[:len(zstdMagic)], zstdMagic)
}
