// Copyright 2025 James Ross
package codec

import (
	"bytes"
	"io"

	"github.com/flyingrobots/orizuru/internal/queueerr"
	"github.com/klauspost/compress/zstd"
)

// Compressed wraps another Codec and zstd-compresses its wire bytes. Not
// part of the default codec; opt in for large payloads.
type Compressed[T any] struct {
	Inner Codec[T]
}

func NewCompressed[T any](inner Codec[T]) Compressed[T] {
	return Compressed[T]{Inner: inner}
}

func (c Compressed[T]) Encode(v T) ([]byte, error) {
	raw, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, queueerr.New(queueerr.Encode, err)
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return nil, queueerr.New(queueerr.Encode, err)
	}
	if err := w.Close(); err != nil {
		return nil, queueerr.New(queueerr.Encode, err)
	}
	return buf.Bytes(), nil
}

func (c Compressed[T]) Decode(b []byte) (T, error) {
	var zero T
	r, err := zstd.NewReader(bytes.NewReader(b))
	if err != nil {
		return zero, queueerr.New(queueerr.Decode, err)
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return zero, queueerr.New(queueerr.Decode, err)
	}
	return c.Inner.Decode(raw)
}
