package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL repositories.  Each
// event row has a one-slot semaphore that GetForUpdate acquires and the
// transaction releases on commit or rollback, so it blocks like an InnoDB
// row lock and gives up when the context expires.  Writes are applied in
// place and undone on rollback.
type memStore struct {
	mu       sync.Mutex
	events   map[uint64]*model.Event
	bookings map[uint64]model.Booking
	locks    map[uint64]chan struct{}
	nextID   uint64

	failCreate    error
	failDecrement error
}

type memTx struct {
	held []chan struct{}
	undo []func()
}

type memTxKey struct{}

func newMemStore() *memStore {
	return &memStore{
		events:   make(map[uint64]*model.Event),
		bookings: make(map[uint64]model.Booking),
		locks:    make(map[uint64]chan struct{}),
		nextID:   100,
	}
}

func (m *memStore) addEvent(e model.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := e
	m.events[e.ID] = &cp
	m.locks[e.ID] = make(chan struct{}, 1)
}

func (m *memStore) seats(id uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[id].AvailableSeats
}

func (m *memStore) bookingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

func (m *memStore) bookedSeats(eventID uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.bookings {
		if b.EventID == eventID {
			n += b.Quantity
		}
	}
	return n
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(memTxKey{}).(*memTx); ok {
		return fn(ctx)
	}
	tx := &memTx{}
	err := fn(context.WithValue(ctx, memTxKey{}, tx))
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		m.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		m.mu.Unlock()
	}
	for _, l := range tx.held {
		<-l
	}
	return err
}

func (m *memStore) WithReadTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func txOf(ctx context.Context) *memTx {
	tx, _ := ctx.Value(memTxKey{}).(*memTx)
	return tx
}

func (m *memStore) GetByID(_ context.Context, id uint64) (model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return model.Event{}, repository.ErrEventNotFound
	}
	return *e, nil
}

func (m *memStore) GetForUpdate(ctx context.Context, id uint64) (model.Event, error) {
	tx := txOf(ctx)
	if tx == nil {
		return model.Event{}, repository.ErrNoTx
	}
	m.mu.Lock()
	lock, ok := m.locks[id]
	m.mu.Unlock()
	if !ok {
		return model.Event{}, repository.ErrEventNotFound
	}
	select {
	case lock <- struct{}{}:
		tx.held = append(tx.held, lock)
	case <-ctx.Done():
		return model.Event{}, fmt.Errorf("lock wait: %w", ctx.Err())
	}
	return m.GetByID(ctx, id)
}

func (m *memStore) DecrementSeats(ctx context.Context, id uint64, n int) error {
	if m.failDecrement != nil {
		return m.failDecrement
	}
	return m.adjust(ctx, id, -n)
}

func (m *memStore) IncrementSeats(ctx context.Context, id uint64, n int) error {
	return m.adjust(ctx, id, n)
}

func (m *memStore) adjust(ctx context.Context, id uint64, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return repository.ErrEventNotFound
	}
	if e.AvailableSeats+delta < 0 {
		return repository.ErrInsufficientSeats
	}
	e.AvailableSeats += delta
	if tx := txOf(ctx); tx != nil {
		tx.undo = append(tx.undo, func() { e.AvailableSeats -= delta })
	}
	return nil
}

func (m *memStore) Create(ctx context.Context, b *model.Booking) error {
	if m.failCreate != nil {
		return m.failCreate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[b.EventID]; !ok {
		return repository.ErrEventNotFound
	}
	m.nextID++
	b.ID = m.nextID
	m.bookings[b.ID] = *b
	id := b.ID
	if tx := txOf(ctx); tx != nil {
		tx.undo = append(tx.undo, func() { delete(m.bookings, id) })
	}
	return nil
}

func (m *memStore) getBooking(id uint64) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrBookingNotFound
	}
	return b, nil
}

func (m *memStore) Delete(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	delete(m.bookings, id)
	if tx := txOf(ctx); tx != nil {
		tx.undo = append(tx.undo, func() { m.bookings[id] = b })
	}
	return nil
}

func (m *memStore) ListByUser(_ context.Context, userID uint64) ([]model.BookingDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.BookingDetail{}
	for _, b := range m.bookings {
		if b.UserID == userID {
			e := m.events[b.EventID]
			out = append(out, model.BookingDetail{Booking: b, Event: model.EventSummary{ID: e.ID, Title: e.Title, Price: e.Price}})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) ListByEvent(_ context.Context, eventID uint64) ([]repository.EventBooking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []repository.EventBooking{}
	for _, b := range m.bookings {
		if b.EventID == eventID {
			out = append(out, repository.EventBooking{Booking: b})
		}
	}
	return out, nil
}

// bookingStore exposes the booking half of memStore; the event half and
// the booking half both have GetByID.
type bookingStore struct{ *memStore }

func (b bookingStore) GetByID(_ context.Context, id uint64) (model.Booking, error) {
	return b.getBooking(id)
}

type recordingPublisher struct {
	mu        sync.Mutex
	confirmed []queue.BookingConfirmedEvent
	cancelled []queue.BookingCancelledEvent
	err       error
}

func (p *recordingPublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, ev)
	return p.err
}

func (p *recordingPublisher) PublishBookingCancelled(_ context.Context, ev queue.BookingCancelledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, ev)
	return p.err
}

func quietLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

var testNow = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
