package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/packcredits/backend/pkg/errors"
	"github.com/packcredits/backend/pkg/redis"
)

// Store is the slice of the redis client the cart needs.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CartKey(accountID string) string
}

// Item is a single pack selection in a cart.
type Item struct {
	PackID uuid.UUID `json:"pack_id"`
	Qty    int       `json:"qty"`
}

// Cart is the redis-backed cart document for one account.
type Cart struct {
	AccountID uuid.UUID `json:"account_id"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetItemInput sets the quantity of one pack in the cart. Qty zero removes
// the line.
type SetItemInput struct {
	PackID string `json:"pack_id" validate:"required,uuid"`
	Qty    int    `json:"qty" validate:"gte=0,lte=100"`
}

// Service stores carts as JSON documents in redis, keyed per account, with a
// sliding TTL so abandoned carts expire on their own.
type Service struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewService builds a cart service. A zero ttl keeps carts forever.
func NewService(store Store, ttl time.Duration) *Service {
	return &Service{store: store, ttl: ttl, now: time.Now}
}

// Get returns the account's cart, empty if none is stored.
func (s *Service) Get(ctx context.Context, accountID uuid.UUID) (*Cart, error) {
	raw, err := s.store.Get(ctx, s.store.CartKey(accountID.String()))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &Cart{AccountID: accountID, Items: []Item{}}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	var cart Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		// A corrupt document is unrecoverable; treat it as an empty cart
		// rather than wedging the storefront.
		return &Cart{AccountID: accountID, Items: []Item{}}, nil
	}
	cart.AccountID = accountID
	if cart.Items == nil {
		cart.Items = []Item{}
	}
	return &cart, nil
}

// SetItem upserts one line in the cart and refreshes the TTL.
func (s *Service) SetItem(ctx context.Context, accountID uuid.UUID, input SetItemInput) (*Cart, error) {
	packID, err := uuid.Parse(input.PackID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pack_id must be a uuid")
	}

	cart, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(cart.Items)+1)
	found := false
	for _, item := range cart.Items {
		if item.PackID == packID {
			found = true
			if input.Qty > 0 {
				items = append(items, Item{PackID: packID, Qty: input.Qty})
			}
			continue
		}
		items = append(items, item)
	}
	if !found && input.Qty > 0 {
		items = append(items, Item{PackID: packID, Qty: input.Qty})
	}
	cart.Items = items

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Clear drops the cart document entirely.
func (s *Service) Clear(ctx context.Context, accountID uuid.UUID) error {
	if err := s.store.Del(ctx, s.store.CartKey(accountID.String())); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *Service) save(ctx context.Context, cart *Cart) error {
	cart.UpdatedAt = s.now().UTC()
	payload, err := json.Marshal(cart)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	key := s.store.CartKey(cart.AccountID.String())
	if err := s.store.Set(ctx, key, string(payload), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store cart")
	}
	return nil
}
