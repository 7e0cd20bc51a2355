package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	rows map[string]*Notification
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]*Notification{}}
}

func (m *memStore) InsertNotification(_ context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.rows[n.ID] = &cp
	return nil
}

func (m *memStore) PendingNotifications(_ context.Context, limit, maxAttempts int) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for _, n := range m.rows {
		if n.Status == StatusSent || n.Attempts >= maxAttempts {
			continue
		}
		out = append(out, *n)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) MarkSent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id].Status = StatusSent
	return nil
}

func (m *memStore) MarkFailed(_ context.Context, id string, attempts int, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.rows[id]
	n.Status = StatusFailed
	n.Attempts = attempts
	n.LastError = lastError
	return nil
}

func (m *memStore) get(id string) Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.rows[id]
}

func TestOutboxEnqueueSwallowsNothing(t *testing.T) {
	store := newMemStore()
	out := NewOutbox(store)

	out.Enqueue(context.Background(), "c1", "copy_approved", map[string]any{"campaignName": "Fintech"})

	pending, err := store.PendingNotifications(context.Background(), 10, 5)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "copy_approved", pending[0].EventType)
	assert.Equal(t, StatusPending, pending[0].Status)
}

func TestDispatchBatchDelivers(t *testing.T) {
	var (
		mu       sync.Mutex
		received []map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		received = append(received, body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := newMemStore()
	out := NewOutbox(store)
	ctx := context.Background()
	out.Enqueue(ctx, "c1", "list_uploaded", map[string]any{"totalRecords": 42})

	d := NewDispatcher(store, srv.Client(), srv.URL, time.Second, 3)
	d.DispatchBatch(ctx)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "list_uploaded", received[0]["type"])
	assert.Equal(t, "c1", received[0]["campaignId"])

	pending, err := store.PendingNotifications(ctx, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, pending, "delivered rows leave the queue")
}

func TestDispatchBatchMarksFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	store := newMemStore()
	out := NewOutbox(store)
	ctx := context.Background()
	out.Enqueue(ctx, "c1", "campaign_launched", nil)

	d := NewDispatcher(store, srv.Client(), srv.URL, time.Second, 2)
	d.DispatchBatch(ctx)

	pending, err := store.PendingNotifications(ctx, 10, 2)
	require.NoError(t, err)
	require.Len(t, pending, 1, "failed rows stay eligible until the budget runs out")
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Contains(t, store.get(pending[0].ID).LastError, "403")

	// Second failure exhausts the budget.
	d.DispatchBatch(ctx)
	pending, err = store.PendingNotifications(ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := newMemStore()
	d := NewDispatcher(store, http.DefaultClient, "http://127.0.0.1:0", 5*time.Millisecond, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}
