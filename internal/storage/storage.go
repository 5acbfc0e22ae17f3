// Package storage is the durable key-value surface backing the cart and
// the persisted auth snapshot. One browser-profile's worth of state: a
// handful of fixed keys, no listing, no TTLs.
package storage

import "context"

// Storage persists raw values under fixed keys. Get returns (nil, nil)
// when the key is absent; absence is never an error.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
