package cart

import (
	"errors"
	"maps"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Errors returned by the cart store.
var (
	ErrCheckoutInProgress = errors.New("cart is locked while checkout is in progress")
	ErrItemNotFound       = errors.New("item not found in cart")
	ErrInvalidQuantity    = errors.New("quantity must be > 0")
	ErrDifferentRestaurant = errors.New("cart holds items from another restaurant")
)

// Item is a single line in the cart. Quantity is always >= 1; an item whose
// quantity drops to 0 is removed, never kept at 0.
type Item struct {
	ID                  uuid.UUID
	MenuItemID          string
	Name                string
	UnitPrice           decimal.Decimal
	Quantity            int32
	Customizations      map[string]string
	SpecialInstructions string
}

// lineTotal = unit price * quantity.
func (i Item) lineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt32(i.Quantity))
}

// Snapshot is an immutable copy of the cart, used for persistence and for
// building submission payloads.
type Snapshot struct {
	RestaurantID   string
	RestaurantName string
	TableNumber    string
	Items          []Item
}

// Subtotal of the snapshot, derived from its lines.
func (s Snapshot) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		total = total.Add(it.lineTotal())
	}
	return total
}

// Persister stores the cart across process restarts. Implementations must
// tolerate Save/Clear being called repeatedly.
type Persister interface {
	Save(snap Snapshot) error
	Load() (Snapshot, error)
	Clear() error
}

// Store is the single mutable piece of shared state in the checkout core.
// Item screens mutate it; the orchestrator is the only component allowed to
// clear it, and only after a durable order reference exists. While a
// checkout attempt is in flight the store rejects mutations.
type Store struct {
	mu sync.Mutex

	restaurantID   string
	restaurantName string
	tableNumber    string
	items          []Item
	checkingOut    bool

	persist Persister
	log     *logrus.Logger
}

// NewStore creates a cart store. persist may be nil for a memory-only cart.
func NewStore(persist Persister, log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.New()
	}
	return &Store{persist: persist, log: log}
}

// Restore loads the persisted cart, if any. Called once at startup.
func (s *Store) Restore() error {
	if s.persist == nil {
		return nil
	}
	snap, err := s.persist.Load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restaurantID = snap.RestaurantID
	s.restaurantName = snap.RestaurantName
	s.tableNumber = snap.TableNumber
	s.items = append([]Item(nil), snap.Items...)
	return nil
}

// SetRestaurant binds the cart to a restaurant. Switching restaurants with
// items still in the cart is rejected; the caller must clear first.
func (s *Store) SetRestaurant(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkingOut {
		return ErrCheckoutInProgress
	}
	if len(s.items) > 0 && s.restaurantID != "" && s.restaurantID != id {
		return ErrDifferentRestaurant
	}
	s.restaurantID = id
	s.restaurantName = name
	s.save()
	return nil
}

// SetTable records the table number for dine-in checkout.
func (s *Store) SetTable(tableNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkingOut {
		return ErrCheckoutInProgress
	}
	s.tableNumber = tableNumber
	s.save()
	return nil
}

// Add puts an item in the cart. A line with the same menu item and the same
// customizations merges quantities instead of creating a duplicate line.
func (s *Store) Add(item Item) (Item, error) {
	if item.Quantity <= 0 {
		return Item{}, ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkingOut {
		return Item{}, ErrCheckoutInProgress
	}

	for idx := range s.items {
		if s.items[idx].MenuItemID == item.MenuItemID &&
			maps.Equal(s.items[idx].Customizations, item.Customizations) &&
			s.items[idx].SpecialInstructions == item.SpecialInstructions {
			s.items[idx].Quantity += item.Quantity
			s.save()
			return s.items[idx], nil
		}
	}

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	s.items = append(s.items, item)
	s.save()
	return item, nil
}

// SetQuantity updates a line's quantity. Zero or less removes the line.
func (s *Store) SetQuantity(id uuid.UUID, quantity int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkingOut {
		return ErrCheckoutInProgress
	}
	for idx := range s.items {
		if s.items[idx].ID == id {
			if quantity <= 0 {
				s.items = append(s.items[:idx], s.items[idx+1:]...)
			} else {
				s.items[idx].Quantity = quantity
			}
			s.save()
			return nil
		}
	}
	return ErrItemNotFound
}

// Remove deletes a line outright.
func (s *Store) Remove(id uuid.UUID) error {
	return s.SetQuantity(id, 0)
}

// Snapshot returns a deep copy of the current cart.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	items := make([]Item, len(s.items))
	for i, it := range s.items {
		it.Customizations = maps.Clone(it.Customizations)
		items[i] = it
	}
	return Snapshot{
		RestaurantID:   s.restaurantID,
		RestaurantName: s.restaurantName,
		TableNumber:    s.tableNumber,
		Items:          items,
	}
}

// Subtotal of the live cart.
func (s *Store) Subtotal() decimal.Decimal {
	return s.Snapshot().Subtotal()
}

// IsEmpty reports whether the cart has no lines.
func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) == 0
}

// BeginCheckout locks the cart against mutation for the duration of a
// checkout attempt and returns the snapshot the attempt will submit.
func (s *Store) BeginCheckout() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkingOut {
		return Snapshot{}, ErrCheckoutInProgress
	}
	s.checkingOut = true
	return s.snapshotLocked(), nil
}

// EndCheckout unlocks the cart after a failed or abandoned attempt.
func (s *Store) EndCheckout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkingOut = false
}

// Clear empties the cart and its persisted copy. Only the orchestrator calls
// this, and only once a durable order reference has been obtained.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.tableNumber = ""
	s.checkingOut = false
	if s.persist != nil {
		if err := s.persist.Clear(); err != nil {
			s.log.WithError(err).Warn("clear persisted cart")
		}
	}
}

// save writes the current state through the persister. Persistence failure
// must not break cart editing, so it is logged and swallowed.
func (s *Store) save() {
	if s.persist == nil {
		return
	}
	if err := s.persist.Save(s.snapshotLocked()); err != nil {
		s.log.WithError(err).Warn("persist cart")
	}
}
