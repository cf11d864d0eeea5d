package broadcast

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/zonebot/core/telegram/sender"
)

type recordingSender struct {
	mu     sync.Mutex
	failOn map[int64]bool
	sent   []int64
}

func (s *recordingSender) SendText(_ context.Context, to int64, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[to] {
		return errors.New("telegram: bot was blocked by the user (403)")
	}
	s.sent = append(s.sent, to)
	return nil
}

type staticAudience []int64

func (a staticAudience) List() []int64 { return a }

type rejectingQueue struct{}

func (rejectingQueue) Submit(context.Context, string, string, func() error, func(error)) error {
	return sender.ErrQueueFull
}

func TestBroadcastIsolatesFailures(t *testing.T) {
	s := &recordingSender{failOn: map[int64]bool{2: true}}
	d := New(s, staticAudience{1, 2, 3, 4}, nil)

	res := d.Broadcast(context.Background(), "hello")
	require.NotEmpty(t, res.ID)
	require.Equal(t, 4, res.Attempted)
	require.Equal(t, 3, res.Delivered)
	require.Equal(t, 1, res.Failed)
	require.Equal(t, []int64{1, 3, 4}, s.sent)
}

func TestBroadcastThroughQueue(t *testing.T) {
	q := sender.NewDispatcher(sender.Options{Workers: 3, QueueSize: 16})
	defer q.Close()

	s := &recordingSender{failOn: map[int64]bool{5: true}}
	ids := staticAudience{1, 2, 3, 4, 5, 6, 7}
	res := New(s, ids, q).Broadcast(context.Background(), "hi")

	require.Equal(t, 7, res.Attempted)
	require.Equal(t, 6, res.Delivered)
	require.Equal(t, 1, res.Failed)

	sort.Slice(s.sent, func(i, j int) bool { return s.sent[i] < s.sent[j] })
	require.Equal(t, []int64{1, 2, 3, 4, 6, 7}, s.sent)
}

func TestBroadcastFallsBackWhenQueueRejects(t *testing.T) {
	s := &recordingSender{}
	res := New(s, staticAudience{10, 11}, rejectingQueue{}).Broadcast(context.Background(), "x")
	require.Equal(t, 2, res.Delivered)
	require.Equal(t, []int64{10, 11}, s.sent)
}

func TestBroadcastEmptyAudience(t *testing.T) {
	res := New(&recordingSender{}, staticAudience{}, nil).Broadcast(context.Background(), "x")
	require.Zero(t, res.Attempted)
}
