// Package storage defines the resource-storage contracts the relay's other
// services consume: keyed CRUD over account, channel, config, document and
// login-settings resources, with change notification. Persistence engines
// implement these interfaces elsewhere; this package carries no engine of
// its own.
package storage

import (
	"context"

	"github.com/Xenomega/EchoRelay-sub000/internal/game"
)

// ChangeType describes the kind of mutation reported to change observers.
type ChangeType int

const (
	ChangeSet ChangeType = iota
	ChangeDeleted
)

func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// ChangeFunc observes a resource mutation. Observers must not block; storage
// implementations invoke them synchronously after the mutation lands.
type ChangeFunc[V any] func(resource V, change ChangeType)

// KeyedResource is a resource that carries its own collection key.
type KeyedResource[K comparable] interface {
	Key() K
}

// Provider manages a single resource of type V.
type Provider[V any] interface {
	// Exists reports whether the resource is present.
	Exists(ctx context.Context) (bool, error)
	// Get loads the resource.
	Get(ctx context.Context) (V, error)
	// Set stores the resource, replacing any prior value.
	Set(ctx context.Context, resource V) error
	// Delete removes the resource. Deleting an absent resource is not an
	// error.
	Delete(ctx context.Context) error
	// OnChange registers an observer for mutations made through this
	// provider.
	OnChange(fn ChangeFunc[V])
}

// CollectionProvider manages a keyed collection of resources of type V.
type CollectionProvider[K comparable, V KeyedResource[K]] interface {
	// Keys lists the keys of every stored resource.
	Keys(ctx context.Context) ([]K, error)
	// Exists reports whether a resource is stored under the key.
	Exists(ctx context.Context, key K) (bool, error)
	// Get loads the resource stored under the key.
	Get(ctx context.Context, key K) (V, error)
	// Set stores a resource under its own key, replacing any prior value.
	Set(ctx context.Context, resource V) error
	// Delete removes the resource stored under the key. Deleting an absent
	// resource is not an error.
	Delete(ctx context.Context, key K) error
	// OnChange registers an observer for mutations made through this
	// provider.
	OnChange(fn ChangeFunc[V])
}

// Storage aggregates the relay's resource providers behind one open/close
// lifecycle. Open may fully re-load resources; after Close, resources are no
// longer available.
type Storage interface {
	// Open prepares the providers for use.
	Open(ctx context.Context) error
	// Close releases the providers.
	Close(ctx context.Context) error
	// Opened reports whether the storage is currently open.
	Opened() bool

	AccessControlList() Provider[*AccessControlList]
	Accounts() CollectionProvider[game.PlatformID, *Account]
	ChannelInfo() Provider[*ChannelInfo]
	Configs() CollectionProvider[ConfigKey, *ConfigResource]
	Documents() CollectionProvider[DocumentKey, *Document]
	LoginSettings() Provider[*LoginSettings]
	SymbolCache() Provider[*SymbolCache]
}
