package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"booking-backend/internal/models"
)

// memStore is an in-memory LedgerStore with the same serialization contract
// as the postgres implementation: WithBookingLock holds a per-booking mutex
// for the whole callback, so read-validate-append inside fn is atomic.
type memStore struct {
	mu       sync.Mutex
	locks    map[int]*sync.Mutex
	bookings map[int]*models.Booking
	entries  []models.LedgerEntry
	payments map[string]*models.PaymentEvent
	nextID   int

	// failLocks injects this many ErrConcurrencyConflict results before
	// lock acquisition starts succeeding.
	failLocks int
}

func newMemStore() *memStore {
	return &memStore{
		locks:    make(map[int]*sync.Mutex),
		bookings: make(map[int]*models.Booking),
		payments: make(map[string]*models.PaymentEvent),
	}
}

func (m *memStore) addBooking(b *models.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = b
	m.locks[b.ID] = &sync.Mutex{}
}

func (m *memStore) bookingLock(bookingID int) (*sync.Mutex, *models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLocks > 0 {
		m.failLocks--
		return nil, nil, models.ErrConcurrencyConflict
	}
	b, ok := m.bookings[bookingID]
	if !ok {
		return nil, nil, models.ErrNotFound
	}
	return m.locks[bookingID], b, nil
}

func (m *memStore) GetBooking(ctx context.Context, bookingID int) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (m *memStore) ListEntries(ctx context.Context, bookingID int) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entriesFor(bookingID), nil
}

func (m *memStore) entriesFor(bookingID int) []models.LedgerEntry {
	var out []models.LedgerEntry
	for _, e := range m.entries {
		if e.BookingID == bookingID {
			out = append(out, e)
		}
	}
	return out
}

func (m *memStore) GetRefundEntry(ctx context.Context, refundID string) (*models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].EntryType == models.LedgerEntryTypeRefund && m.entries[i].RefundID == refundID {
			copied := m.entries[i]
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memStore) ListRefundEntries(ctx context.Context, filter *models.LedgerFilter) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range m.entries {
		if e.EntryType != models.LedgerEntryTypeRefund {
			continue
		}
		if filter != nil {
			if filter.BookingID != nil && e.BookingID != *filter.BookingID {
				continue
			}
			if filter.State != "" && e.RefundState != filter.State {
				continue
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memStore) RefundStatistics(ctx context.Context, filter *models.LedgerFilter) (*models.RefundStatistics, error) {
	entries, err := m.ListRefundEntries(ctx, filter)
	if err != nil {
		return nil, err
	}
	stats := &models.RefundStatistics{
		CountByState:  make(map[models.RefundState]int),
		AmountByState: make(map[models.RefundState]float64),
	}
	for _, e := range entries {
		stats.CountByState[e.RefundState]++
		stats.AmountByState[e.RefundState] += e.Amount
	}
	return stats, nil
}

func (m *memStore) WithBookingLock(ctx context.Context, bookingID int, fn func(tx LedgerTx) error) error {
	lock, booking, err := m.bookingLock(bookingID)
	if err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()
	return fn(&memTx{store: m, booking: booking})
}

func (m *memStore) WithRefundLock(ctx context.Context, refundID string, fn func(tx LedgerTx, refund *models.LedgerEntry) error) error {
	entry, err := m.GetRefundEntry(ctx, refundID)
	if err != nil {
		return err
	}
	return m.WithBookingLock(ctx, entry.BookingID, func(tx LedgerTx) error {
		current, err := m.GetRefundEntry(ctx, refundID)
		if err != nil {
			return err
		}
		return fn(tx, current)
	})
}

type memTx struct {
	store   *memStore
	booking *models.Booking
}

func (t *memTx) Booking() *models.Booking {
	return t.booking
}

func (t *memTx) Entries(ctx context.Context) ([]models.LedgerEntry, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.entriesFor(t.booking.ID), nil
}

func (t *memTx) AppendEntries(ctx context.Context, entries []models.LedgerEntry) ([]models.LedgerEntry, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	appended := make([]models.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		t.store.nextID++
		e.ID = t.store.nextID
		e.CreatedAt = time.Now()
		t.store.entries = append(t.store.entries, e)
		appended = append(appended, e)
	}
	return appended, nil
}

func (t *memTx) UpdateRefundLifecycle(ctx context.Context, refundID string, upd models.RefundLifecycleUpdate) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for i := range t.store.entries {
		e := &t.store.entries[i]
		if e.EntryType == models.LedgerEntryTypeRefund && e.RefundID == refundID {
			e.RefundState = upd.State
			e.EstimatedDays = upd.EstimatedDays
			e.ProcessedAt = upd.ProcessedAt
			e.CompletedAt = upd.CompletedAt
			e.FailureDetail = upd.FailureDetail
			return nil
		}
	}
	return models.ErrNotFound
}

func (t *memTx) InsertPaymentEvent(ctx context.Context, ev *models.PaymentEvent) (bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if _, exists := t.store.payments[ev.GatewayPaymentID]; exists {
		return false, nil
	}
	t.store.nextID++
	ev.ID = t.store.nextID
	ev.CreatedAt = time.Now()
	t.store.payments[ev.GatewayPaymentID] = ev
	return true, nil
}

func (t *memTx) AddPaidAmount(ctx context.Context, amount float64) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.booking.PaidAmount += amount
	return nil
}

// memSettings is a fixed-value SettingsReader
type memSettings map[string]string

func (s memSettings) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	v, ok := s[key]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &models.SystemSetting{SettingKey: key, SettingValue: v}, nil
}

// memNotifier records broadcast refund events
type memNotifier struct {
	mu     sync.Mutex
	events []models.RefundEvent
}

func (n *memNotifier) NotifyRefundEvent(ev models.RefundEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *memNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func testBooking(id int, base, paid float64) *models.Booking {
	return &models.Booking{
		ID:          id,
		Reference:   fmt.Sprintf("BK-%04d", id),
		BookingType: models.BookingTypeVehicleRental,
		BaseAmount:  base,
		PaidAmount:  paid,
		Status:      models.BookingStatusActive,
	}
}
