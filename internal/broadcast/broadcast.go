// Package broadcast sends one text to every known counterparty.
package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/zonebot/core/logger"
)

// Sender delivers a single text message.
type Sender interface {
	SendText(ctx context.Context, to int64, text string) error
}

// Audience lists broadcast recipients.
type Audience interface {
	List() []int64
}

// Queue runs send jobs asynchronously and reports each outcome through done.
type Queue interface {
	Submit(ctx context.Context, action, endpoint string, run func() error, done func(error)) error
}

// Result summarises one broadcast. Attempted counts every recipient a send
// was started for; Delivered and Failed split it by outcome.
type Result struct {
	ID        string
	Attempted int
	Delivered int
	Failed    int
}

// Dispatcher fans a message out to the audience. A failed recipient is logged
// and never retried or allowed to stop delivery to the rest.
type Dispatcher struct {
	sender   Sender
	audience Audience
	queue    Queue
}

// New returns a Dispatcher. A nil queue sends sequentially on the caller's goroutine.
func New(sender Sender, audience Audience, queue Queue) *Dispatcher {
	return &Dispatcher{sender: sender, audience: audience, queue: queue}
}

// Broadcast sends text to every counterparty and waits for all sends to finish.
func (d *Dispatcher) Broadcast(ctx context.Context, text string) Result {
	res := Result{ID: uuid.NewString()}
	start := time.Now()
	recipients := d.audience.List()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(to int64, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			res.Failed++
			logger.Warn(ctx, "broadcast", "broadcast.recipient",
				slog.String("status", "fail"),
				slog.String("broadcast_id", res.ID),
				slog.Int64("recipient", to),
				slog.String("err", err.Error()),
			)
			return
		}
		res.Delivered++
	}

	for _, to := range recipients {
		to := to
		res.Attempted++
		run := func() error { return d.sender.SendText(ctx, to, text) }
		if d.queue == nil {
			record(to, run())
			continue
		}
		wg.Add(1)
		done := func(err error) {
			record(to, err)
			wg.Done()
		}
		if err := d.queue.Submit(ctx, "broadcast.text", "sendMessage", run, done); err != nil {
			// Queue rejected the job; deliver inline instead.
			done(run())
		}
	}
	wg.Wait()

	logger.Info(ctx, "broadcast", "broadcast.done",
		slog.String("status", "ok"),
		slog.String("broadcast_id", res.ID),
		slog.Int("attempted", res.Attempted),
		slog.Int("delivered", res.Delivered),
		slog.Int("failed", res.Failed),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return res
}
