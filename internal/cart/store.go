// Package cart is the single source of truth for what the shopper intends
// to buy. The store keeps the canonical line-item list in memory, persists
// it through an injectable storage port on every mutation, and notifies
// subscribers after each persist.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/lumi-glow/storefront/internal/storage"
	"github.com/lumi-glow/storefront/pkg/logger"
)

// StorageKey is the fixed key the serialized cart array lives under.
const StorageKey = "lumi_glow_cart"

// Store owns the cart. All operations are safe for concurrent use; the
// read-modify-persist-notify sequence runs under one lock so two
// near-simultaneous AddItem calls cannot lose an update.
type Store struct {
	mu       sync.Mutex
	items    []LineItem
	storage  storage.Storage
	notifier *Notifier
	log      *logger.Logger
}

// NewStore loads the persisted cart and builds the store around it.
// Unreadable or corrupt persisted state degrades to an empty cart.
func NewStore(ctx context.Context, store storage.Storage, log *logger.Logger) (*Store, error) {
	if store == nil {
		return nil, fmt.Errorf("cart storage required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	s := &Store{
		storage:  store,
		notifier: NewNotifier(),
		log:      log,
	}
	s.items = s.load(ctx)
	return s, nil
}

// Subscribe registers a cart-changed listener; the returned function
// removes it.
func (s *Store) Subscribe(fn func(Event)) func() {
	return s.notifier.Subscribe(fn)
}

// Items returns a snapshot copy of the cart. Mutating the returned slice
// never touches the store.
func (s *Store) Items(ctx context.Context) []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.items)
}

// AddItem merges the product into the cart: an existing line's quantity
// grows by quantity, a new line is appended otherwise. Quantity values
// below one count as one.
func (s *Store) AddItem(ctx context.Context, product Product, quantity int) []LineItem {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	merged := false
	for i := range s.items {
		if s.items[i].ProductID == product.ID {
			s.items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		s.items = append(s.items, newLineItem(product, quantity))
	}
	items, event := s.persistLocked(ctx)
	s.mu.Unlock()

	s.notifier.publish(event)
	return items
}

// UpdateQuantity sets the line's quantity; zero or below removes the line.
// An unknown product id is a tolerated no-op that still persists and
// notifies.
func (s *Store) UpdateQuantity(ctx context.Context, productID, quantity int) []LineItem {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ProductID != productID {
			continue
		}
		if quantity <= 0 {
			s.items = append(s.items[:i], s.items[i+1:]...)
		} else {
			s.items[i].Quantity = quantity
		}
		break
	}
	items, event := s.persistLocked(ctx)
	s.mu.Unlock()

	s.notifier.publish(event)
	return items
}

// RemoveItem deletes the line if present; no-op otherwise.
func (s *Store) RemoveItem(ctx context.Context, productID int) []LineItem {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ProductID == productID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	items, event := s.persistLocked(ctx)
	s.mu.Unlock()

	s.notifier.publish(event)
	return items
}

// Clear empties the cart unconditionally.
func (s *Store) Clear(ctx context.Context) []LineItem {
	s.mu.Lock()
	s.items = nil
	items, event := s.persistLocked(ctx)
	s.mu.Unlock()

	s.notifier.publish(event)
	return items
}

// load reads the persisted cart, failing soft to empty.
func (s *Store) load(ctx context.Context) []LineItem {
	raw, err := s.storage.Get(ctx, StorageKey)
	if err != nil {
		s.log.Warn(ctx, "cart storage unreadable, starting empty", err)
		return nil
	}
	if len(raw) == 0 {
		return nil
	}

	var items []LineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		s.log.Warn(ctx, "persisted cart corrupt, starting empty", err)
		return nil
	}
	return items
}

// persistLocked runs under s.mu: it persists the cart and captures the
// post-mutation snapshot and event. The event is published by the caller
// AFTER releasing the lock, so a listener may read back from the store
// without deadlocking. A persistence failure is logged, never surfaced:
// the in-memory cart stays authoritative for this session.
func (s *Store) persistLocked(ctx context.Context) ([]LineItem, Event) {
	raw, err := json.Marshal(snapshotNonNil(s.items))
	if err != nil {
		s.log.Error(ctx, "encode cart for persistence", err)
	} else if err := s.storage.Set(ctx, StorageKey, raw); err != nil {
		s.log.Warn(ctx, "persist cart", err)
	}

	return snapshot(s.items), Event{Items: snapshot(s.items), ItemCount: ItemCount(s.items)}
}

func snapshot(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	copied := make([]LineItem, len(items))
	copy(copied, items)
	return copied
}

func snapshotNonNil(items []LineItem) []LineItem {
	if items == nil {
		return []LineItem{}
	}
	return items
}
