package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking/internal/clock"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/repository"
)

// eventStore exposes the event CRUD half of memStore.
type eventStore struct {
	*memStore
	lastQuery model.EventQuery
}

func (s *eventStore) Create(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	s.nextID++
	e.ID = s.nextID
	s.mu.Unlock()
	s.addEvent(*e)
	return nil
}

func (s *eventStore) Update(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.events[e.ID]
	if !ok {
		return repository.ErrEventNotFound
	}
	*cur = *e
	return nil
}

func (s *eventStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return repository.ErrEventNotFound
	}
	delete(s.events, id)
	return nil
}

func (s *eventStore) List(_ context.Context, q model.EventQuery) (model.EventPage, error) {
	s.lastQuery = q
	return model.EventPage{Page: q.Page, Events: []model.Event{}}, nil
}

func newEventFixture(t *testing.T) (*EventService, *eventStore) {
	t.Helper()
	store := &eventStore{memStore: newMemStore()}
	return NewEventService(store, store, quietLogger()), store
}

func ptr[T any](v T) *T { return &v }

func TestEventCreate(t *testing.T) {
	svc, store := newEventFixture(t)
	e, err := svc.Create(context.Background(), 3, EventInput{
		Title:          "  Opera  ",
		Location:       ptr("Main hall"),
		Date:           "2025-10-20",
		Price:          decimal.RequireFromString("45.50"),
		AvailableSeats: 120,
	})
	require.NoError(t, err)
	assert.NotZero(t, e.ID)
	assert.Equal(t, "Opera", e.Title)
	assert.Equal(t, "2025-10-20", e.Date.String())
	require.NotNil(t, e.CreatedBy)
	assert.Equal(t, uint64(3), *e.CreatedBy)
	assert.Equal(t, 120, store.seats(e.ID))
}

func TestEventCreateValidation(t *testing.T) {
	svc, _ := newEventFixture(t)
	valid := EventInput{Title: "Opera", Date: "2025-10-20", Price: decimal.NewFromInt(10), AvailableSeats: 1}

	cases := map[string]func(in *EventInput){
		"blank title":     func(in *EventInput) { in.Title = "   " },
		"bad date":        func(in *EventInput) { in.Date = "20/10/2025" },
		"negative price":  func(in *EventInput) { in.Price = decimal.RequireFromString("-1") },
		"three decimals":  func(in *EventInput) { in.Price = decimal.RequireFromString("1.005") },
		"huge price":      func(in *EventInput) { in.Price = decimal.RequireFromString("100000000") },
		"negative seats":  func(in *EventInput) { in.AvailableSeats = -1 },
		"bad image url":   func(in *EventInput) { in.Image = ptr("not a url") },
		"long time field": func(in *EventInput) { in.Time = ptr("this is far too long to be a start time for any event ever") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)
			_, err := svc.Create(context.Background(), 1, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestEventUpdateSeatsUnderLock(t *testing.T) {
	svc, store := newEventFixture(t)
	store.addEvent(model.Event{ID: 1, Title: "Opera", Price: decimal.NewFromInt(10), AvailableSeats: 5})

	// Hold the row lock the way an in-flight reservation would.
	locked := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = store.WithTx(context.Background(), func(ctx context.Context) error {
			if _, err := store.GetForUpdate(ctx, 1); err != nil {
				return err
			}
			close(locked)
			<-release
			return store.DecrementSeats(ctx, 1, 2)
		})
	}()
	<-locked

	updated := make(chan model.Event, 1)
	go func() {
		e, err := svc.Update(context.Background(), 1, EventPatch{AvailableSeats: ptr(50)})
		assert.NoError(t, err)
		updated <- e
	}()

	select {
	case <-updated:
		t.Fatal("update must wait for the row lock")
	case <-time.After(30 * time.Millisecond):
	}
	close(release)
	wg.Wait()

	e := <-updated
	assert.Equal(t, 50, e.AvailableSeats)
	assert.Equal(t, 50, store.seats(1))
}

func TestEventUpdatePartial(t *testing.T) {
	svc, store := newEventFixture(t)
	store.addEvent(model.Event{ID: 1, Title: "Opera", Location: ptr("Hall A"), Price: decimal.NewFromInt(10), AvailableSeats: 5})

	e, err := svc.Update(context.Background(), 1, EventPatch{Price: ptr(decimal.RequireFromString("12.50")), Date: ptr("2025-12-01")})
	require.NoError(t, err)
	assert.Equal(t, "Opera", e.Title)
	assert.Equal(t, "Hall A", *e.Location)
	assert.Equal(t, "12.5", e.Price.String())
	assert.Equal(t, "2025-12-01", e.Date.String())
	assert.Equal(t, 5, e.AvailableSeats)
}

func TestEventUpdateRejects(t *testing.T) {
	svc, store := newEventFixture(t)
	store.addEvent(model.Event{ID: 1, Title: "Opera", AvailableSeats: 5})

	_, err := svc.Update(context.Background(), 1, EventPatch{AvailableSeats: ptr(-3)})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Update(context.Background(), 1, EventPatch{Title: ptr(" ")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Update(context.Background(), 2, EventPatch{Title: ptr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 5, store.seats(1))
}

func TestEventDelete(t *testing.T) {
	svc, store := newEventFixture(t)
	store.addEvent(model.Event{ID: 1, Title: "Opera"})

	require.NoError(t, svc.Delete(context.Background(), 1))
	assert.ErrorIs(t, svc.Delete(context.Background(), 1), ErrNotFound)
	_, err := svc.Get(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventListNormalisesPaging(t *testing.T) {
	svc, store := newEventFixture(t)

	_, err := svc.List(context.Background(), model.EventQuery{Page: -1, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, store.lastQuery.Page)
	assert.Equal(t, MaxPageSize, store.lastQuery.Limit)

	_, err = svc.List(context.Background(), model.EventQuery{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, store.lastQuery.Limit)
}

func TestFillMonths(t *testing.T) {
	from := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)
	got := fillMonths(from, 3, map[string]model.PeriodTotals{
		"2024-12": {Bookings: 2, Revenue: decimal.RequireFromString("40.00")},
	})
	require.Len(t, got, 3)
	assert.Equal(t, "2024-11", got[0].Month)
	assert.Equal(t, "Nov 2024", got[0].Label)
	assert.True(t, got[0].Revenue.IsZero())
	assert.Equal(t, 2, got[1].Bookings)
	assert.Equal(t, "2025-01", got[2].Month)
}

type fakeStats struct {
	from, to time.Time
	monthly  map[string]model.PeriodTotals
}

func (f *fakeStats) Totals(context.Context) (int, int, int, decimal.Decimal, error) {
	return 4, 3, 3, decimal.RequireFromString("100.00"), nil
}

func (f *fakeStats) EventSplit(context.Context, model.Date) (int, int, error) { return 2, 1, nil }

func (f *fakeStats) PeriodTotals(_ context.Context, from, to time.Time) (model.PeriodTotals, error) {
	f.from, f.to = from, to
	return model.PeriodTotals{Bookings: 1, Revenue: decimal.NewFromInt(20)}, nil
}

func (f *fakeStats) TopEvents(context.Context, int) ([]model.TopEvent, error) {
	return []model.TopEvent{{ID: 1}}, nil
}

func (f *fakeStats) RecentBookings(context.Context, int) ([]model.RecentBooking, error) {
	return []model.RecentBooking{}, nil
}

func (f *fakeStats) MonthlyTotals(_ context.Context, from, to time.Time) (map[string]model.PeriodTotals, error) {
	f.from, f.to = from, to
	return f.monthly, nil
}

func TestDashboard(t *testing.T) {
	stats := &fakeStats{}
	svc := NewStatsService(newMemStore(), stats, clock.NewFixed(time.Date(2025, 3, 17, 9, 0, 0, 0, time.UTC)))

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, d.Overview.TotalUsers)
	assert.Equal(t, 2, d.Overview.UpcomingEvents)
	assert.Equal(t, "33.33", d.Overview.AvgBookingValue.StringFixed(2))
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), stats.from)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), stats.to)
	assert.Len(t, d.TopEvents, 1)
}

func TestRevenueChartCoversTwelveMonths(t *testing.T) {
	stats := &fakeStats{monthly: map[string]model.PeriodTotals{
		"2025-03": {Bookings: 5, Revenue: decimal.NewFromInt(99)},
	}}
	svc := NewStatsService(newMemStore(), stats, clock.NewFixed(time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC)))

	chart, err := svc.RevenueChart(context.Background())
	require.NoError(t, err)
	require.Len(t, chart, 12)
	assert.Equal(t, "2024-04", chart[0].Month)
	assert.Equal(t, "2025-03", chart[11].Month)
	assert.Equal(t, 5, chart[11].Bookings)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), stats.from)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), stats.to)
}

func TestAverageWithoutBookings(t *testing.T) {
	assert.True(t, average(decimal.NewFromInt(10), 0).IsZero())
}
