package lending

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

const cartRemovalTimeout = 5 * time.Second

// CartRemover drops a book from a borrower's cart.
type CartRemover interface {
	RemoveFromCart(ctx context.Context, userID string, bookID int64) error
}

// StoreCart is the database-backed cart.
type StoreCart struct {
	DB *sqlx.DB
}

// RemoveFromCart implements CartRemover.
func (c StoreCart) RemoveFromCart(ctx context.Context, userID string, bookID int64) error {
	return store.Retry(ctx, func() error {
		return store.RemoveFromCart(ctx, c.DB, userID, bookID)
	})
}

type cartRemoval struct {
	userID string
	bookID int64
}

// CartDispatcher removes borrowed books from carts in the background. Every
// removal is attempted at most once; failures and dropped requests are
// logged and never reach the borrower.
type CartDispatcher struct {
	remover CartRemover
	queue   chan cartRemoval
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewCartDispatcher starts a dispatcher with room for size pending removals.
func NewCartDispatcher(remover CartRemover, size int) *CartDispatcher {
	if size <= 0 {
		size = 1
	}
	d := &CartDispatcher{
		remover: remover,
		queue:   make(chan cartRemoval, size),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Notify queues removal of bookID from the user's cart. It never blocks: a
// full queue or a closed dispatcher drops the request.
func (d *CartDispatcher) Notify(userID string, bookID int64) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		slog.Warn("cart removal dropped, dispatcher closed", "user", userID, "book", bookID)
		return
	}

	select {
	case d.queue <- cartRemoval{userID: userID, bookID: bookID}:
	default:
		slog.Warn("cart removal dropped, queue full", "user", userID, "book", bookID)
	}
}

// Close stops accepting removals and waits until the queued ones are done.
func (d *CartDispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	<-d.done
}

func (d *CartDispatcher) run() {
	defer close(d.done)

	for r := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), cartRemovalTimeout)
		err := d.remover.RemoveFromCart(ctx, r.userID, r.bookID)
		cancel()
		if err != nil {
			slog.Error("cart removal failed", "user", r.userID, "book", r.bookID, "error", err)
			continue
		}
		slog.Debug("removed borrowed book from cart", "user", r.userID, "book", r.bookID)
	}
}

// Cart returns the books in the borrower's cart.
func (s *Service) Cart(ctx context.Context, userID string) ([]model.CartItem, error) {
	if userID == "" {
		return nil, ErrNoBorrower
	}

	var items []model.CartItem
	err := store.Retry(ctx, func() error {
		var err error
		items, err = store.ListCart(ctx, s.db, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing cart: %w", err)
	}
	if items == nil {
		items = []model.CartItem{}
	}
	return items, nil
}

// AddToCart puts bookID in the borrower's cart.
func (s *Service) AddToCart(ctx context.Context, userID string, bookID int64) error {
	if userID == "" {
		return ErrNoBorrower
	}

	err := store.Retry(ctx, func() error {
		book, err := store.GetBook(ctx, s.db, bookID)
		if err != nil {
			return err
		}
		if book == nil {
			return ErrBookNotFound
		}
		return store.AddToCart(ctx, s.db, userID, bookID, s.clock.Now())
	})
	if err != nil {
		return fmt.Errorf("adding book %d to cart: %w", bookID, err)
	}
	return nil
}

// RemoveFromCart drops bookID from the borrower's cart.
func (s *Service) RemoveFromCart(ctx context.Context, userID string, bookID int64) error {
	if userID == "" {
		return ErrNoBorrower
	}

	if err := (StoreCart{DB: s.db}).RemoveFromCart(ctx, userID, bookID); err != nil {
		return fmt.Errorf("removing book %d from cart: %w", bookID, err)
	}
	return nil
}
