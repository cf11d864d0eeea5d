package conversation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/zonebot/internal/domain"
)

func TestUserPathDeliversOnceAndCounts(t *testing.T) {
	h := newHarness(t)
	ch := &recordingChannel{}
	before := h.stats.Snapshot()

	s := h.drive(t, ch,
		Cmd(userID, CommandStart),
		Selection(userID, TokenUser),
		Selection(userID, "BTC"),
		Selection(userID, "day"),
	)
	require.Equal(t, root(), s)
	require.Equal(t, 1, ch.photos())

	after := h.stats.Snapshot()
	require.Equal(t, before.Total+1, after.Total)
	require.Equal(t, before.Day+1, after.Day)
	require.Equal(t, before.Week+1, after.Week)
	require.Equal(t, before.Month+1, after.Month)
	require.Equal(t, after.StatsRecord, h.store.rec)
}

func TestFailedDeliveryIsNotCounted(t *testing.T) {
	h := newHarness(t)
	ch := &recordingChannel{failOn: ActionSendPhoto, failing: true}
	before := h.stats.Snapshot()

	h.drive(t, ch, Selection(userID, TokenUser), Selection(userID, "BTC"))
	err := h.engine.Handle(context.Background(), ch, Selection(userID, "day"))
	require.Error(t, err)

	require.Equal(t, before, h.stats.Snapshot())
	require.Equal(t, Session{State: StateUserTimeframe, Item: "BTC"}, h.engine.Session(userID))
}

func TestStatsFlushFailureKeepsSession(t *testing.T) {
	h := newHarness(t)
	ch := &recordingChannel{}
	h.drive(t, ch, Selection(userID, TokenUser), Selection(userID, "BTC"))

	h.store.failSaves = true
	err := h.engine.Handle(context.Background(), ch, Selection(userID, "day"))
	require.ErrorIs(t, err, errDiskFull)
	require.Equal(t, StateUserTimeframe, h.engine.Session(userID).State)
	require.Equal(t, msgGenericFailure, ch.sent[len(ch.sent)-1].Text)
}

func TestTransitionErrorRepliesGenerically(t *testing.T) {
	h := newHarness(t)
	ch := &recordingChannel{}
	h.drive(t, ch,
		Selection(adminID, TokenAdmin),
		Text(adminID, password),
		Selection(adminID, "BTC"),
		Selection(adminID, "month"),
		Text(adminID, "99"),
	)
	h.images.err = errDiskFull

	err := h.engine.Handle(context.Background(), ch, Photo(adminID, "f"))
	require.ErrorIs(t, err, errDiskFull)
	require.Equal(t, StateAdminImage, h.engine.Session(adminID).State)
	require.Equal(t, msgGenericFailure, ch.sent[len(ch.sent)-1].Text)
}

func TestIgnoredEventSendsNothing(t *testing.T) {
	h := newHarness(t)
	ch := &recordingChannel{}
	require.NoError(t, h.engine.Handle(context.Background(), ch, Photo(userID, "f")))
	require.Empty(t, ch.sent)
	require.Equal(t, root(), h.engine.Session(userID))
}

func TestSessionsAreIsolated(t *testing.T) {
	h := newHarness(t)
	ch := &recordingChannel{}
	h.drive(t, ch, Selection(userID, TokenUser), Selection(userID, "ETH"))
	h.drive(t, ch, Selection(adminID, TokenAdmin))

	require.Equal(t, Session{State: StateUserTimeframe, Item: "ETH"}, h.engine.Session(userID))
	require.Equal(t, Session{State: StateAdminPassword}, h.engine.Session(adminID))
}

type lockedChannel struct {
	mu sync.Mutex
	recordingChannel
}

func (l *lockedChannel) SendPhoto(ctx context.Context, image, caption string, kb Keyboard) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recordingChannel.SendPhoto(ctx, image, caption, kb)
}

func (l *lockedChannel) SendText(ctx context.Context, text string, kb Keyboard) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recordingChannel.SendText(ctx, text, kb)
}

func (l *lockedChannel) EditText(ctx context.Context, text string, kb Keyboard) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recordingChannel.EditText(ctx, text, kb)
}

func TestConcurrentDeliveriesAreAllCounted(t *testing.T) {
	h := newHarness(t)
	ch := &lockedChannel{}
	before := h.stats.Snapshot().Total

	const users = 20
	var wg sync.WaitGroup
	for i := int64(0); i < users; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for _, ev := range []Event{
				Selection(id, TokenUser),
				Selection(id, "BTC"),
				Selection(id, string(domain.WindowDay)),
			} {
				assert.NoError(t, h.engine.Handle(context.Background(), ch, ev))
			}
		}(1000 + i)
	}
	wg.Wait()

	require.Equal(t, before+users, h.stats.Snapshot().Total)
	require.Equal(t, users, ch.photos())
}
