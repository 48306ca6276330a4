// Package kv defines the durable key/value store the tracker persists into.
//
// Keys are plain strings and values are opaque strings (usually JSON). There
// are no transactions across keys: Apply writes a batch in order but callers
// must not rely on atomicity between its operations.
package kv

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("kv: store closed")

// Op is one write of a batch. Remove deletes Key and ignores Value.
type Op struct {
	Key    string
	Value  string
	Remove bool
}

// Set returns an Op that stores value under key.
func Set(key, value string) Op { return Op{Key: key, Value: value} }

// Remove returns an Op that deletes key.
func Remove(key string) Op { return Op{Key: key, Remove: true} }

// Store is an asynchronous durable string map.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// MultiGet returns the present values among keys. Absent keys are omitted.
	MultiGet(ctx context.Context, keys []string) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	// Apply performs ops in order.
	Apply(ctx context.Context, ops []Op) error
	Close() error
}
