package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
)

const (
	LastUserIDKey = "last_user_id"
	// anonymousUser is persisted as the last identity after a signed-out visit.
	anonymousUser = "none"

	DefaultQuietPeriod = 2 * time.Second
	DefaultTimeout     = 10 * time.Second

	SyncFailedTitle = "Cart Sync Failed"
)

// Remote is the server-side copy of a signed-in user's cart.
type Remote interface {
	Pull(ctx context.Context, userID string) ([]domain.CartItem, error)
	Push(ctx context.Context, userID string, items []domain.CartItem) error
}

// Notifier surfaces non-blocking messages to the user.
type Notifier interface {
	Notify(title, message string)
}

type LogNotifier struct{}

func (LogNotifier) Notify(title, message string) {
	slog.Warn(title, "message", message)
}

type SyncOptions struct {
	// Enabled is the remote sync capability; when false the cart is local only.
	Enabled     bool
	QuietPeriod time.Duration
	Timeout     time.Duration
}

// SyncController keeps a Store reconciled with the Remote: one pull per
// identity (merging on a sign-in transition) and a debounced push after
// every later change.
type SyncController struct {
	cart     *Store
	remote   Remote
	storage  LocalStorage
	notifier Notifier
	opts     SyncOptions

	mu         sync.Mutex
	userID     string
	pulledFor  string
	pullGen    uint64
	pullCancel context.CancelFunc
	pushGen    uint64
	timer      *time.Timer
}

func NewSyncController(cart *Store, remote Remote, storage LocalStorage, notifier Notifier, opts SyncOptions) *SyncController {
	if opts.QuietPeriod <= 0 {
		opts.QuietPeriod = DefaultQuietPeriod
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}
	c := &SyncController{
		cart:     cart,
		remote:   remote,
		storage:  storage,
		notifier: notifier,
		opts:     opts,
	}
	cart.OnChange(c.onCartChanged)
	return c
}

// IdentityChanged evaluates the transition from the last persisted identity
// to userID ("" for anonymous). Pull failures are reported through the
// Notifier and returned; local state is left untouched.
func (c *SyncController) IdentityChanged(ctx context.Context, userID string) error {
	last, _, err := c.storage.Get(LastUserIDKey)
	if err != nil {
		return fmt.Errorf("read last user id: %w", err)
	}
	wasAnonymous := last == "" || last == anonymousUser
	signedOut := !wasAnonymous && userID == ""

	c.mu.Lock()
	if userID != c.userID || userID != c.pulledFor {
		c.pulledFor = ""
		c.cancelPendingLocked()
	}
	c.userID = userID
	needsPull := c.opts.Enabled && userID != "" && c.pulledFor != userID
	c.mu.Unlock()

	if signedOut {
		if err := c.cart.ClearCart(); err != nil {
			return err
		}
	}

	signIn := needsPull && wasAnonymous
	if !signIn {
		if err := c.persistIdentity(userID); err != nil {
			return err
		}
	}
	if !needsPull {
		return nil
	}

	applied, err := c.pull(ctx, userID, signIn)
	if err != nil || !applied {
		return err
	}
	// the sign-in transition is only consumed once its merge has happened
	if signIn {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.userID != userID {
			return nil
		}
		return c.persistIdentity(userID)
	}
	return nil
}

func (c *SyncController) persistIdentity(userID string) error {
	v := userID
	if v == "" {
		v = anonymousUser
	}
	if err := c.storage.Set(LastUserIDKey, v); err != nil {
		return fmt.Errorf("persist last user id: %w", err)
	}
	return nil
}

// pull reports applied=false when a newer pull or identity superseded it.
func (c *SyncController) pull(ctx context.Context, userID string, merge bool) (applied bool, err error) {
	c.mu.Lock()
	if c.pullCancel != nil {
		c.pullCancel()
	}
	c.pullGen++
	gen := c.pullGen
	pctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	c.pullCancel = cancel
	c.mu.Unlock()
	defer cancel()

	remote, err := c.remote.Pull(pctx, userID)

	c.mu.Lock()
	if gen != c.pullGen || c.userID != userID {
		c.mu.Unlock()
		return false, nil
	}
	c.pullCancel = nil
	if err != nil {
		c.mu.Unlock()
		slog.WarnContext(ctx, "cart pull failed", "user_id", userID, "error", err)
		c.notifier.Notify(SyncFailedTitle, "Could not load your saved cart.")
		return false, fmt.Errorf("pull cart: %w", err)
	}
	c.pulledFor = userID
	c.mu.Unlock()

	next := remote
	if merge {
		next = Merge(c.cart.Items(), remote)
	}
	if err := c.cart.SetItems(next); err != nil {
		return false, err
	}
	return true, nil
}

func (c *SyncController) onCartChanged([]domain.CartItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.opts.Enabled || c.userID == "" || c.pulledFor != c.userID {
		return
	}
	c.pushGen++
	gen := c.pushGen
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.opts.QuietPeriod, func() {
		c.flush(context.Background(), gen)
	})
}

// Flush sends a pending push immediately instead of waiting for the quiet
// period to elapse.
func (c *SyncController) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.timer == nil {
		c.mu.Unlock()
		return nil
	}
	c.timer.Stop()
	gen := c.pushGen
	c.mu.Unlock()
	return c.flush(ctx, gen)
}

func (c *SyncController) flush(ctx context.Context, gen uint64) error {
	c.mu.Lock()
	if gen != c.pushGen || c.timer == nil || c.userID == "" {
		c.mu.Unlock()
		return nil
	}
	c.timer = nil
	userID := c.userID
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	// failed pushes are not retried; the next change schedules a new one
	if err := c.remote.Push(ctx, userID, c.cart.Items()); err != nil {
		slog.WarnContext(ctx, "cart push failed", "user_id", userID, "error", err)
		c.notifier.Notify(SyncFailedTitle, "Could not save your cart.")
		return fmt.Errorf("push cart: %w", err)
	}
	return nil
}

// Pending reports whether a push is scheduled.
func (c *SyncController) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

// Close stops any scheduled push and in-flight pull.
func (c *SyncController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelPendingLocked()
}

func (c *SyncController) cancelPendingLocked() {
	c.pushGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.pullCancel != nil {
		c.pullCancel()
		c.pullCancel = nil
	}
	c.pullGen++
}
