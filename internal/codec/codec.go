// Copyright 2025 James Ross
// Package codec defines the encode/decode capability a payload type provides
// and a default MessagePack implementation.
package codec

import (
	"bytes"

	"github.com/flyingrobots/orizuru/internal/queueerr"
	"github.com/hashicorp/go-msgpack/codec"
)

// Codec is the pair of capabilities a payload type needs: encode a value to
// bytes for the wire, decode bytes back into a value. Implementations must
// round-trip: Decode(Encode(v)) == v.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(b []byte) (T, error)
}

var msgpackHandle codec.MsgpackHandle

// Msgpack is the default codec, backed by github.com/hashicorp/go-msgpack.
type Msgpack[T any] struct{}

func NewMsgpack[T any]() Msgpack[T] {
	return Msgpack[T]{}
}

func (Msgpack[T]) Encode(v T) ([]byte, error) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, &msgpackHandle)
	if err := enc.Encode(v); err != nil {
		return nil, queueerr.New(queueerr.Encode, err)
	}
	return buf.Bytes(), nil
}

func (Msgpack[T]) Decode(b []byte) (T, error) {
	var v T
	dec := codec.NewDecoder(bytes.NewReader(b), &msgpackHandle)
	if err := dec.Decode(&v); err != nil {
		return v, queueerr.New(queueerr.Decode, err)
	}
	return v, nil
}
