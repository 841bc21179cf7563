package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrCartNotFound is returned by RemoteStore.ReadCart when the user has
	// no saved cart. It is handled exactly like an empty cart.
	ErrCartNotFound = errors.New("cart not found")
	// ErrEmptyCart is returned by Checkout on an empty cart.
	ErrEmptyCart = errors.New("cart is empty")
)

// RemoteStore is the server-held, per-user cart store.
type RemoteStore interface {
	ReadCart(ctx context.Context, userID string) (Cart, error)
	WriteCart(ctx context.Context, userID string, c Cart) error
}

// LocalCache is the client-held cart used while nobody is signed in.
// Implementations never fail: unreadable data reads as an empty cart.
type LocalCache interface {
	ReadLocal() Cart
	WriteLocal(c Cart)
	ClearLocal()
}

// Identity is what the identity provider currently reports. Nothing is
// loaded or written until Loaded is true.
type Identity struct {
	UserID string
	Loaded bool
}

// Anonymous is a loaded identity with nobody signed in.
func Anonymous() Identity { return Identity{Loaded: true} }

// SignedIn is a loaded identity for userID.
func SignedIn(userID string) Identity { return Identity{UserID: userID, Loaded: true} }

// Authenticated reports whether a user is signed in.
func (id Identity) Authenticated() bool { return id.Loaded && id.UserID != "" }

// Receipt describes a completed (mock) checkout.
type Receipt struct {
	UserID     string
	Lines      []Line
	TotalItems int
	TotalPrice decimal.Decimal
	PaidAt     time.Time
	// SaveErr is set when the emptied cart could not be persisted. The
	// purchase itself still stands.
	SaveErr error
}

// Option configures a Session.
type Option func(*Session)

// WithDebounce sets the quiescence window of deferred writes.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) { s.debounce = d }
}

// WithLogger sets the logger used for store failures.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) { s.log = log }
}

// Session owns the active cart of one client. It loads the cart from the
// authoritative store whenever the identity changes, merges the local cart
// into the server cart on sign-in, and persists every mutation through a
// debounced Scheduler: to the RemoteStore while signed in, to the
// LocalCache otherwise.
//
// Store failures never surface from mutations; they are logged and the
// in-memory cart stays the source of truth.
type Session struct {
	remote RemoteStore
	local  LocalCache
	sched  *Scheduler
	log    *zap.Logger

	debounce time.Duration

	mu       sync.Mutex
	cart     Cart
	identity Identity
	ready    bool

	subMu   sync.Mutex
	subs    map[int]func(Cart)
	nextSub int
}

// NewSession returns a session that stays inert until SetIdentity
// receives a loaded identity.
func NewSession(remote RemoteStore, local LocalCache, opts ...Option) *Session {
	s := &Session{
		remote:   remote,
		local:    local,
		log:      zap.NewNop(),
		debounce: DefaultDebounce,
		subs:     make(map[int]func(Cart)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sched = NewScheduler(s.debounce, s.log)
	return s
}

// Close abandons pending writes.
func (s *Session) Close() {
	s.sched.Close()
}

// Subscribe registers fn to receive a snapshot after every change of the
// active cart, including loads. fn runs on the goroutine that made the
// change, after the session lock is released. The returned function
// unsubscribes.
func (s *Session) Subscribe(fn func(Cart)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Session) notify(c Cart) {
	s.subMu.Lock()
	fns := make([]func(Cart), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c.Clone())
	}
}

// SetIdentity reports the identity provider's state. A transition to a
// loaded identity reloads the active cart from the store that is now
// authoritative; signing in additionally reconciles the local cart into
// the server cart. Calls that do not change the identity are no-ops.
//
// The returned error is informational: on failure the session has already
// fallen back to a usable cart.
func (s *Session) SetIdentity(ctx context.Context, id Identity) error {
	s.mu.Lock()
	prev := s.identity
	s.identity = id
	if !id.Loaded {
		s.ready = false
		s.mu.Unlock()
		return nil
	}
	if s.ready && prev.Loaded && prev.UserID == id.UserID {
		s.mu.Unlock()
		return nil
	}

	// Whatever the previous identity left pending belongs to its store.
	if err := s.sched.FlushPending(ctx); err != nil {
		s.log.Warn("failed to flush pending cart write", zap.Error(err))
	}
	s.ready = false

	var (
		snapshot Cart
		err      error
	)
	if id.UserID == "" {
		snapshot = s.hydrateLocked(s.local.ReadLocal())
	} else {
		snapshot, err = s.loadRemoteLocked(ctx, id.UserID)
	}
	s.mu.Unlock()

	s.notify(snapshot)
	return err
}

// loadRemoteLocked reads the server cart and reconciles it with the local
// cart. A read failure other than "not found" falls back to the local cart
// without reconciling.
func (s *Session) loadRemoteLocked(ctx context.Context, userID string) (Cart, error) {
	server, err := s.remote.ReadCart(ctx, userID)
	switch {
	case errors.Is(err, ErrCartNotFound):
		server = Cart{}
	case err != nil:
		s.log.Warn("failed to load server cart, using local cart",
			zap.String("user", userID), zap.Error(err))
		return s.hydrateLocked(s.local.ReadLocal()), nil
	}
	return s.reconcileLocked(ctx, userID, server)
}

// reconcileLocked merges the local cart into server, makes the result the
// active cart, writes it to the server and only then clears the local
// cart. If the write fails the local cart is kept, so a later sign-in
// merges the same inputs again.
func (s *Session) reconcileLocked(ctx context.Context, userID string, server Cart) (Cart, error) {
	local := s.local.ReadLocal()
	merged := Merge(server, local)
	snapshot := s.hydrateLocked(merged)
	if local.IsEmpty() {
		return snapshot, nil
	}

	if err := s.sched.Flush(ctx, merged.Clone(), s.remoteSink(userID)); err != nil {
		s.log.Error("failed to save merged cart, keeping local cart",
			zap.String("user", userID), zap.Error(err))
		return snapshot, fmt.Errorf("save merged cart: %w", err)
	}
	s.local.ClearLocal()
	return snapshot, nil
}

// hydrateLocked installs c as the active cart without scheduling a write.
func (s *Session) hydrateLocked(c Cart) Cart {
	s.cart = c.Clone()
	s.ready = true
	return s.cart.Clone()
}

func (s *Session) remoteSink(userID string) Sink {
	return SinkFunc(func(ctx context.Context, c Cart) error {
		return s.remote.WriteCart(ctx, userID, c)
	})
}

func (s *Session) localSink() Sink {
	return SinkFunc(func(_ context.Context, c Cart) error {
		if c.IsEmpty() {
			s.local.ClearLocal()
			return nil
		}
		s.local.WriteLocal(c)
		return nil
	})
}

// sinkLocked returns the store that is authoritative for the current identity.
func (s *Session) sinkLocked() Sink {
	if s.identity.UserID != "" {
		return s.remoteSink(s.identity.UserID)
	}
	return s.localSink()
}

// mutate applies fn to the active cart and, if it changed anything,
// schedules a deferred write and notifies subscribers. Before the first
// load completes changes stay in memory only.
func (s *Session) mutate(fn func(c *Cart) bool) bool {
	s.mu.Lock()
	if !fn(&s.cart) {
		s.mu.Unlock()
		return false
	}
	snapshot := s.cart.Clone()
	if s.ready {
		s.sched.Schedule(s.cart.Clone(), s.sinkLocked())
	}
	s.mu.Unlock()

	s.notify(snapshot)
	return true
}

// Add puts quantity units of item into the cart. Non-positive quantities
// are ignored.
func (s *Session) Add(item Item, quantity int) bool {
	return s.mutate(func(c *Cart) bool { return c.Add(item, quantity) })
}

// Remove deletes the line for itemID.
func (s *Session) Remove(itemID string) bool {
	return s.mutate(func(c *Cart) bool { return c.Remove(itemID) })
}

// SetQuantity overwrites the quantity of itemID; non-positive removes it.
func (s *Session) SetQuantity(itemID string, quantity int) bool {
	return s.mutate(func(c *Cart) bool { return c.SetQuantity(itemID, quantity) })
}

// Clear empties the cart and writes the empty cart to the authoritative
// store immediately, superseding any pending deferred write.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	err := s.clearLocked(ctx)
	s.mu.Unlock()

	s.notify(Cart{})
	return err
}

func (s *Session) clearLocked(ctx context.Context) error {
	s.cart.Clear()
	if !s.ready {
		return nil
	}
	if err := s.sched.Flush(ctx, Cart{}, s.sinkLocked()); err != nil {
		s.log.Error("failed to save cleared cart", zap.Error(err))
		return fmt.Errorf("save cleared cart: %w", err)
	}
	return nil
}

// Checkout completes a mock purchase of the whole cart and clears it.
// Payment is not processed. A failure to persist the cleared cart does not
// fail the checkout; it is reported in Receipt.SaveErr.
func (s *Session) Checkout(ctx context.Context) (Receipt, error) {
	s.mu.Lock()
	if s.cart.IsEmpty() {
		s.mu.Unlock()
		return Receipt{}, ErrEmptyCart
	}
	receipt := Receipt{
		UserID:     s.identity.UserID,
		Lines:      s.cart.Lines(),
		TotalItems: s.cart.TotalItems(),
		TotalPrice: s.cart.TotalPrice(),
		PaidAt:     time.Now(),
	}
	receipt.SaveErr = s.clearLocked(ctx)
	s.mu.Unlock()

	s.notify(Cart{})
	return receipt, nil
}

// Cart returns a snapshot of the active cart.
func (s *Session) Cart() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// TotalItems is the sum of quantities in the active cart.
func (s *Session) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.TotalItems()
}

// TotalPrice is the unrounded value of the active cart.
func (s *Session) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.TotalPrice()
}

// Contains reports whether itemID is in the active cart.
func (s *Session) Contains(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Contains(itemID)
}

// Identity returns the identity last passed to SetIdentity.
func (s *Session) Identity() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Ready reports whether the active cart has been loaded for the current
// identity.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Scheduler exposes the write scheduler, mainly for inspection.
func (s *Session) Scheduler() *Scheduler { return s.sched }
