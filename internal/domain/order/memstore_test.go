package order

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/xenking/tiered-checkout/internal/domain/account"
	"github.com/xenking/tiered-checkout/internal/domain/cart"
	"github.com/xenking/tiered-checkout/internal/domain/coupon"
	"github.com/xenking/tiered-checkout/internal/domain/pricing"
	"github.com/xenking/tiered-checkout/internal/domain/product"
	"github.com/xenking/tiered-checkout/internal/domain/settings"
)

// memState is the committed data of memStore. Transactions work on a clone
// and swap it in on commit, so a failed transaction leaves no trace.
type memState struct {
	accounts    map[string]account.Account
	memberships map[string]account.Membership
	products    map[string]product.Product
	carts       map[string]cart.Cart // by account id
	addresses   map[string]Address
	coupons     map[string]coupon.Coupon // by code
	rules       []pricing.Rule
	settings    map[string]string
	orders      map[string]Order // by number
	approvals   []ApprovalRequest
}

func (s *memState) clone() *memState {
	c := &memState{
		accounts:    maps.Clone(s.accounts),
		memberships: maps.Clone(s.memberships),
		products:    maps.Clone(s.products),
		carts:       make(map[string]cart.Cart, len(s.carts)),
		addresses:   maps.Clone(s.addresses),
		coupons:     maps.Clone(s.coupons),
		rules:       slices.Clone(s.rules),
		settings:    maps.Clone(s.settings),
		orders:      maps.Clone(s.orders),
		approvals:   slices.Clone(s.approvals),
	}
	for k, v := range s.carts {
		v.Items = slices.Clone(v.Items)
		c.carts[k] = v
	}
	return c
}

// memStore is an in-memory UnitOfWork with serializable transactions.
type memStore struct {
	mu    sync.Mutex
	state *memState

	// staleCoupons makes FindByCode report zero usage, emulating a read
	// that raced a concurrent redemption.
	staleCoupons bool
	// fail injects an error for a mutation before it is applied.
	fail func(Mutation) error
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		accounts:    map[string]account.Account{},
		memberships: map[string]account.Membership{},
		products:    map[string]product.Product{},
		carts:       map[string]cart.Cart{},
		addresses:   map[string]Address{},
		coupons:     map[string]coupon.Coupon{},
		settings:    map[string]string{},
		orders:      map[string]Order{},
	}}
}

var (
	_ UnitOfWork         = (*memStore)(nil)
	_ account.Repository = (*memStore)(nil)
	_ Repository         = (*memStore)(nil)
	_ Tx                 = (*memTx)(nil)
)

func (s *memStore) Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, &memTx{store: s, st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.state.accounts[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return &a, nil
}

func (s *memStore) FindMembership(_ context.Context, accountID string) (*account.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.state.memberships[accountID]
	if !ok {
		return nil, account.ErrNotFound
	}
	return &m, nil
}

func (s *memStore) GetByNumber(_ context.Context, accountID, number string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.state.orders[number]
	if !ok || o.AccountID != accountID {
		return nil, ErrOrderNotFound
	}
	return &o, nil
}

// snapshot returns the committed state for assertions.
func (s *memStore) snapshot() *memState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

type memTx struct {
	store *memStore
	st    *memState
}

func (t *memTx) Cart(_ context.Context, accountID string) (*cart.Cart, error) {
	c, ok := t.st.carts[accountID]
	if !ok {
		return &cart.Cart{AccountID: accountID}, nil
	}
	items := make([]cart.Item, len(c.Items))
	for i, it := range c.Items {
		it.Product = t.st.products[it.ProductID]
		items[i] = it
	}
	c.Items = items
	return &c, nil
}

func (t *memTx) Address(_ context.Context, accountID, addressID string) (*Address, error) {
	a, ok := t.st.addresses[addressID]
	if !ok || a.AccountID != accountID {
		return nil, ErrAddressNotFound
	}
	return &a, nil
}

func (t *memTx) Membership(_ context.Context, accountID string) (*account.Membership, error) {
	m, ok := t.st.memberships[accountID]
	if !ok {
		return nil, account.ErrNotFound
	}
	return &m, nil
}

func (t *memTx) Settings(_ context.Context) (settings.Settings, error) {
	s, _ := settings.FromValues(t.st.settings)
	return s, nil
}

func (t *memTx) DiscountRules(_ context.Context, tier account.Tier) ([]pricing.Rule, error) {
	var out []pricing.Rule
	for _, r := range t.st.rules {
		if r.Tier == tier {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *memTx) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	c, ok := t.st.coupons[code]
	if !ok {
		return nil, coupon.ErrCouponNotFound
	}
	if t.store.staleCoupons {
		c.UsageCount = 0
	}
	return &c, nil
}

func (t *memTx) Apply(_ context.Context, mutations []Mutation) error {
	for _, m := range mutations {
		if t.store.fail != nil {
			if err := t.store.fail(m); err != nil {
				return err
			}
		}
		switch m := m.(type) {
		case CreateOrder:
			t.st.orders[m.Order.Number] = *m.Order
		case CreateApproval:
			t.st.approvals = append(t.st.approvals, m.Request)
		case RedeemCoupon:
			if err := t.redeem(m.CouponID); err != nil {
				return err
			}
		case ClearCart:
			for k, c := range t.st.carts {
				if c.ID == m.CartID {
					c.Items = nil
					t.st.carts[k] = c
				}
			}
		case DecrementStock:
			p := t.st.products[m.ProductID]
			if m.Strict && p.StockQuantity < m.Quantity {
				return &StockConflictError{ProductID: p.ID, Requested: m.Quantity, Available: p.StockQuantity}
			}
			p.StockQuantity = max(p.StockQuantity-m.Quantity, 0)
			t.st.products[m.ProductID] = p
		}
	}
	return nil
}

func (t *memTx) redeem(id string) error {
	for code, c := range t.st.coupons {
		if c.ID != id {
			continue
		}
		if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
			return coupon.ErrCouponUsageLimitReached
		}
		c.UsageCount++
		t.st.coupons[code] = c
		return nil
	}
	return coupon.ErrCouponNotFound
}
