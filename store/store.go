package store

import (
	"context"
	"errors"
	"fmt"

	"food-marketplace-api/models"
	"food-marketplace-api/realtime"

	"gorm.io/gorm"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrConflict    = errors.New("record was modified concurrently, re-fetch and retry")
	ErrDuplicate   = errors.New("record already exists")
	ErrUnavailable = errors.New("persistence temporarily unavailable")
)

// Store is the persistence adapter: get, insert, conditional update and subscribe.
type Store struct {
	db  *gorm.DB
	hub *realtime.Hub
}

func New(db *gorm.DB, hub *realtime.Hub) *Store {
	return &Store{db: db, hub: hub}
}

// DB exposes the underlying handle for read-side queries.
func (s *Store) DB() *gorm.DB { return s.db }

// Hub exposes the change feed.
func (s *Store) Hub() *realtime.Hub { return s.hub }

// Wrap maps driver errors onto the store's error taxonomy.
func Wrap(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict),
		errors.Is(err, ErrDuplicate), errors.Is(err, ErrUnavailable):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

// Transaction runs fn with a Store bound to a single database transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	var inner error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner = fn(&Store{db: tx, hub: s.hub})
		return inner
	})
	if inner != nil {
		return inner
	}
	return Wrap(err)
}

// Get loads the record with the given primary key into dest.
func (s *Store) Get(ctx context.Context, dest interface{}, id uint, preloads ...string) error {
	q := s.db.WithContext(ctx)
	for _, p := range preloads {
		q = q.Preload(p)
	}
	return Wrap(q.First(dest, id).Error)
}

// Insert creates record (and its associations).
func (s *Store) Insert(ctx context.Context, record interface{}) error {
	return Wrap(s.db.WithContext(ctx).Create(record).Error)
}

// UpdateStatus moves an order from expected to next, applying patch in the same
// statement. It fails with ErrConflict when the stored status no longer matches.
func (s *Store) UpdateStatus(ctx context.Context, orderID uint, expected, next models.OrderStatus, patch map[string]interface{}) error {
	values := map[string]interface{}{"status": next}
	for k, v := range patch {
		values[k] = v
	}
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, expected).
		Updates(values)
	if res.Error != nil {
		return Wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
			return Wrap(err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

// Subscribe registers onChange for events on topic; call the result to stop.
func (s *Store) Subscribe(topic string, filter realtime.Filter, onChange func(realtime.Event)) (unsubscribe func()) {
	return s.hub.Subscribe(topic, filter, onChange)
}

// Publish pushes a change to subscribers.
func (s *Store) Publish(ev realtime.Event) {
	if s.hub != nil {
		s.hub.Publish(ev)
	}
}
