// Package codec provides typed payload adapters for bridge capabilities.
//
// The bridge surface moves string payloads; a Codec pairs a marshal and an
// unmarshal function so senders and listeners can work with typed values
// while everything still crosses the boundary by value, serialized.
package codec

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"

	"github.com/snowmerak/bridge.go/lib/bridge"
)

// Codec serializes values of type T to and from bridge payloads.
type Codec[T any] struct {
	Marshal   func(T) (string, error)
	Unmarshal func(string) (T, error)
}

// JSON returns a codec using encoding/json.
func JSON[T any]() Codec[T] {
	return Codec[T]{
		Marshal: func(value T) (string, error) {
			data, err := json.Marshal(value)
			if err != nil {
				return "", err
			}
			return string(data), nil
		},
		Unmarshal: func(payload string) (T, error) {
			var value T
			err := json.Unmarshal([]byte(payload), &value)
			return value, err
		},
	}
}

// Protobuf returns a codec using Protocol Buffers serialization. T must be a
// pointer proto message type; factory returns a new, non-nil instance to
// unmarshal into, e.g. func() *pb.Notice { return new(pb.Notice) }.
func Protobuf[T proto.Message](factory func() T) Codec[T] {
	return Codec[T]{
		Marshal: func(value T) (string, error) {
			data, err := proto.Marshal(value)
			if err != nil {
				return "", err
			}
			return string(data), nil
		},
		Unmarshal: func(payload string) (T, error) {
			instance := factory()
			if err := proto.Unmarshal([]byte(payload), instance); err != nil {
				var zero T
				return zero, err
			}
			return instance, nil
		},
	}
}

// Text returns the identity codec for plain string payloads.
func Text() Codec[string] {
	return Codec[string]{
		Marshal:   func(value string) (string, error) { return value, nil },
		Unmarshal: func(payload string) (string, error) { return payload, nil },
	}
}

// TypedSender wraps a bridge send capability so callers pass typed values.
func TypedSender[T any](send bridge.SendFunc, c Codec[T]) func(ctx context.Context, value T) error {
	return func(ctx context.Context, value T) error {
		payload, err := c.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		return send(ctx, payload)
	}
}

// TypedListener adapts a typed callback to the bridge listener signature.
// Payloads that fail to decode are passed to onError if it is non-nil and
// dropped otherwise.
func TypedListener[T any](fn func(T), c Codec[T], onError func(error)) func(payload string) {
	return func(payload string) {
		value, err := c.Unmarshal(payload)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("failed to unmarshal payload: %w", err))
			}
			return
		}
		fn(value)
	}
}
