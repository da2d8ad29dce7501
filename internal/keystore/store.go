// Package keystore provides the durable key→string storage substrate the
// account and favorites stores are built on: values survive restarts, are
// visible to every process sharing the same storage location, and mutations
// made by one handle are announced to subscribers on all the others.
//
// The contract mirrors browser local storage plus its storage events: a
// handle never receives notifications for its own writes, and setting a key
// to the value it already holds announces nothing.
package keystore

import "context"

// Event describes a single key mutation observed in shared storage.
// Present is false when the key was deleted; Value is then empty.
type Event struct {
	Key     string
	Value   string
	Present bool
}

// Handler receives change events. Handlers are invoked sequentially per
// handle and may call back into the store.
type Handler func(Event)

// Store is a durable keyed store with change notifications.
//
// Contract:
//   - Get: absent is a normal, non-error result (ok=false).
//   - Set: overwrites. Writing an unchanged value is a no-op for observers.
//   - Delete: no-op when the key is absent.
//   - Subscribe: the handler fires for mutations made through OTHER handles
//     or processes, never for this handle's own writes. The returned function
//     removes the subscription and is mandatory teardown.
//   - Close: releases resources; further calls fail with common.ErrorClosed.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Subscribe(h Handler) (unsubscribe func())
	Close() error
}
