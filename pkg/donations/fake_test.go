package donations

import (
	"context"
	"log/slog"
	"sync"

	"nanas/models"
)

type fakeSessions struct {
	mu        sync.Mutex
	created   []CheckoutRequest
	createErr error
	createRes *Session

	session     *Session
	retrieveErr error

	items    []LineItem
	itemsErr error
	listed   int
}

func (f *fakeSessions) CreateSession(_ context.Context, req CheckoutRequest) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createRes != nil {
		return f.createRes, nil
	}
	return &Session{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1"}, nil
}

func (f *fakeSessions) RetrieveSession(_ context.Context, id string) (*Session, error) {
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	s := *f.session
	s.ID = id
	return &s, nil
}

func (f *fakeSessions) ListLineItems(_ context.Context, _ string, limit int64) ([]LineItem, error) {
	f.mu.Lock()
	f.listed++
	f.mu.Unlock()
	if f.itemsErr != nil {
		return nil, f.itemsErr
	}
	if int64(len(f.items)) > limit {
		return f.items[:limit], nil
	}
	return f.items, nil
}

type memStore struct {
	mu     sync.Mutex
	rows   []*models.Donation
	err    error
	unique bool
}

func (m *memStore) Add(_ context.Context, d *models.Donation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.unique && d.StripeSessionID != nil {
		for _, r := range m.rows {
			if r.StripeSessionID != nil && *r.StripeSessionID == *d.StripeSessionID {
				return ErrDuplicateSession
			}
		}
	}
	d.ID = uint(len(m.rows) + 1)
	m.rows = append(m.rows, d)
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// logRecorder keeps every record so tests can assert on levels.
type logRecorder struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *logRecorder) Enabled(context.Context, slog.Level) bool { return true }
func (h *logRecorder) WithAttrs([]slog.Attr) slog.Handler       { return h }
func (h *logRecorder) WithGroup(string) slog.Handler            { return h }
func (h *logRecorder) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	h.records = append(h.records, r.Clone())
	h.mu.Unlock()
	return nil
}

func (h *logRecorder) has(level slog.Level, msg string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.records {
		if r.Level == level && r.Message == msg {
			return true
		}
	}
	return false
}

func int64p(v int64) *int64 { return &v }
