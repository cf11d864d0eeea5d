package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/zonebot/internal/broadcast"
	"github.com/m3rciful/zonebot/internal/catalog"
	"github.com/m3rciful/zonebot/internal/domain"
	"github.com/m3rciful/zonebot/internal/stats"
)

const (
	adminID  int64 = 100
	userID   int64 = 200
	password       = "hunter2"
)

var errDiskFull = errors.New("disk full")

// memStore is an in-memory catalog and stats persistence.
type memStore struct {
	mu        sync.Mutex
	items     []domain.Item
	rec       domain.StatsRecord
	saves     int
	failSaves bool
}

func (m *memStore) LoadCatalog(context.Context) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items, nil
}

func (m *memStore) SaveCatalog(_ context.Context, items []domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSaves {
		return errDiskFull
	}
	m.items = items
	m.saves++
	return nil
}

func (m *memStore) LoadStats(context.Context) (domain.StatsRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec, nil
}

func (m *memStore) SaveStats(_ context.Context, rec domain.StatsRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSaves {
		return errDiskFull
	}
	m.rec = rec
	m.saves++
	return nil
}

type fakeImages struct {
	saved []string
	err   error
}

func (f *fakeImages) SaveImage(_ context.Context, item string, w domain.Window, handle string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	ref := fmt.Sprintf("images/%s/%s.png", item, w)
	f.saved = append(f.saved, handle)
	return ref, nil
}

type fakeBroadcaster struct {
	texts  []string
	result broadcast.Result
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, text string) broadcast.Result {
	f.texts = append(f.texts, text)
	return f.result
}

type adminSet map[int64]bool

func (a adminSet) IsAdmin(id int64) bool { return a[id] }

type audienceSize int

func (a audienceSize) Count() int { return int(a) }

// sent is one action observed by recordingChannel.
type sent struct {
	Kind     ActionKind
	Text     string
	Image    string
	Keyboard Keyboard
}

type recordingChannel struct {
	sent    []sent
	failOn  ActionKind
	failing bool
}

func (r *recordingChannel) record(k ActionKind, text, image string, kb Keyboard) error {
	if r.failing && r.failOn == k {
		return errors.New("telegram: forbidden")
	}
	r.sent = append(r.sent, sent{Kind: k, Text: text, Image: image, Keyboard: kb})
	return nil
}

func (r *recordingChannel) SendText(_ context.Context, text string, kb Keyboard) error {
	return r.record(ActionSendText, text, "", kb)
}

func (r *recordingChannel) SendPhoto(_ context.Context, image, caption string, kb Keyboard) error {
	return r.record(ActionSendPhoto, caption, image, kb)
}

func (r *recordingChannel) EditText(_ context.Context, text string, kb Keyboard) error {
	return r.record(ActionEditText, text, "", kb)
}

func (r *recordingChannel) photos() int {
	n := 0
	for _, s := range r.sent {
		if s.Kind == ActionSendPhoto {
			n++
		}
	}
	return n
}

type harness struct {
	store   *memStore
	catalog *catalog.Store
	stats   *stats.Aggregator
	images  *fakeImages
	bcast   *fakeBroadcaster
	machine *Machine
	engine  *Engine
}

// newHarness builds a machine over BTC (day entry ready) and ETH (empty).
func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	btc := domain.NewItem("BTC")
	btc.Entries[domain.WindowDay] = domain.Entry{Price: 42000.5, Image: "images/BTC/day.png"}
	store := &memStore{
		items: []domain.Item{btc, domain.NewItem("ETH")},
		rec:   domain.StatsRecord{Day: 4, Week: 2, Month: 9, Total: 20, LastUpdateWeek: "2"},
	}

	cat, err := catalog.Load(ctx, store)
	require.NoError(t, err)
	// 2026-01-07 is in ISO week 2.
	agg, err := stats.Load(ctx, store, audienceSize(3), stats.WithClock(func() time.Time {
		return time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)

	h := &harness{
		store:   store,
		catalog: cat,
		stats:   agg,
		images:  &fakeImages{},
		bcast:   &fakeBroadcaster{result: broadcast.Result{ID: "b1", Attempted: 3, Delivered: 2, Failed: 1}},
	}
	h.machine, err = NewMachine(Deps{
		Catalog:     cat,
		Images:      h.images,
		Stats:       agg,
		Broadcaster: h.bcast,
		Admins:      adminSet{adminID: true},
		Password:    password,
		WelcomeText: "Welcome!",
	})
	require.NoError(t, err)
	h.engine = NewEngine(h.machine, agg)
	return h
}

// drive feeds events through the engine and returns the final session.
func (h *harness) drive(t *testing.T, ch Channel, events ...Event) Session {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, h.engine.Handle(context.Background(), ch, ev))
	}
	if len(events) == 0 {
		return root()
	}
	return h.engine.Session(events[0].Sender)
}
