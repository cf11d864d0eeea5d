package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/zonebot/core/logger"
	"github.com/m3rciful/zonebot/core/telegram/state"
)

// Channel executes actions towards the counterparty that sent the event.
type Channel interface {
	SendText(ctx context.Context, text string, kb Keyboard) error
	SendPhoto(ctx context.Context, image, caption string, kb Keyboard) error
	EditText(ctx context.Context, text string, kb Keyboard) error
}

// DeliveryRecorder counts successful content deliveries.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context) error
}

// Engine owns the session table and runs one event at a time per counterparty.
// Events from different counterparties proceed in parallel.
type Engine struct {
	machine  *Machine
	sessions *state.Table[Session]
	stats    DeliveryRecorder
}

// NewEngine returns an Engine with an empty session table.
func NewEngine(m *Machine, stats DeliveryRecorder) *Engine {
	return &Engine{machine: m, sessions: state.NewTable[Session](), stats: stats}
}

// Session returns the current session for id.
func (e *Engine) Session(id int64) Session {
	s, ok := e.sessions.Get(id)
	if !ok {
		return root()
	}
	return s
}

// Handle runs ev through the machine and executes the outcome on ch. The next
// session is stored only when every action (and the delivery count that
// follows a delivery) succeeded.
func (e *Engine) Handle(ctx context.Context, ch Channel, ev Event) error {
	unlock := e.sessions.Lock(ev.Sender)
	defer unlock()

	start := time.Now()
	cur := e.Session(ev.Sender)

	out, err := e.machine.Transition(ctx, cur, ev)
	if err != nil {
		e.logFailure(ctx, cur, "transition", err)
		if sendErr := ch.SendText(ctx, msgGenericFailure, nil); sendErr != nil {
			e.logFailure(ctx, cur, "reply", sendErr)
		}
		return err
	}
	if out.Ignored {
		logger.Debug(ctx, "conversation", "conversation.ignored",
			slog.String("status", "skip"),
			slog.String("state", cur.State.String()),
			slog.String("op", eventLabel(ev)),
		)
		return nil
	}

	for _, a := range out.Actions {
		if err := execute(ctx, ch, a); err != nil {
			e.logFailure(ctx, cur, a.Kind.String(), err)
			return fmt.Errorf("%s: %w", a.Kind, err)
		}
		if !a.Delivery {
			continue
		}
		if err := e.stats.RecordDelivery(ctx); err != nil {
			e.logFailure(ctx, cur, "record_delivery", err)
			if sendErr := ch.SendText(ctx, msgGenericFailure, nil); sendErr != nil {
				e.logFailure(ctx, cur, "reply", sendErr)
			}
			return err
		}
	}

	e.sessions.Put(ev.Sender, out.Next)
	logger.Info(ctx, "conversation", "conversation.transition",
		slog.String("status", "ok"),
		slog.String("state", cur.State.String()),
		slog.String("next_state", out.Next.State.String()),
		slog.String("op", eventLabel(ev)),
		slog.Int("count", len(out.Actions)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

func execute(ctx context.Context, ch Channel, a Action) error {
	switch a.Kind {
	case ActionSendText:
		return ch.SendText(ctx, a.Text, a.Keyboard)
	case ActionSendPhoto:
		return ch.SendPhoto(ctx, a.Image, a.Text, a.Keyboard)
	case ActionEditText:
		return ch.EditText(ctx, a.Text, a.Keyboard)
	}
	return fmt.Errorf("unknown action kind %d", a.Kind)
}

func (e *Engine) logFailure(ctx context.Context, cur Session, op string, err error) {
	logger.Error(ctx, "conversation", "conversation.failed",
		slog.String("status", "fail"),
		slog.String("state", cur.State.String()),
		slog.String("op", op),
		slog.String("err", err.Error()),
	)
}

func eventLabel(ev Event) string {
	switch ev.Kind {
	case EventText:
		return "text"
	case EventSelection:
		return "select:" + logger.SanitizeLimit(ev.Token, 32)
	case EventPhoto:
		return "photo"
	case EventCommand:
		return "command:" + string(ev.Command)
	}
	return "unknown"
}
