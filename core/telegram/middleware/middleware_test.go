package middleware

import (
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type adminSet map[int64]bool

func (a adminSet) IsAdmin(id int64) bool { return a[id] }

func newContext(t *testing.T, senderID int64) tele.Context {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return b.NewContext(tele.Update{
		ID: 7,
		Message: &tele.Message{
			Sender: &tele.User{ID: senderID},
			Chat:   &tele.Chat{ID: senderID, Type: tele.ChatPrivate},
			Text:   "/stats",
		},
	})
}

func TestAdminOnlyMiddleware(t *testing.T) {
	var passed, rejected int
	next := func(tele.Context) error { passed++; return nil }
	mw := AdminOnlyMiddleware(AdminOptions{
		Admins:   adminSet{1: true},
		OnReject: func(tele.Context) error { rejected++; return nil },
	})

	require.NoError(t, mw(next)(newContext(t, 1)))
	require.NoError(t, mw(next)(newContext(t, 2)))
	require.Equal(t, 1, passed)
	require.Equal(t, 1, rejected)

	// Without an admin set nobody passes.
	require.NoError(t, AdminOnlyMiddleware(AdminOptions{})(next)(newContext(t, 1)))
	require.Equal(t, 1, passed)
}

func TestRecoverMiddlewareTurnsPanicIntoError(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(newContext(t, 1))
	require.EqualError(t, err, "panic: boom")
}

func TestLoggerMiddlewareSetsRID(t *testing.T) {
	c := newContext(t, 42)
	var rid string
	h := LoggerMiddleware(func(c tele.Context) error {
		rid, _ = c.Get("rid").(string)
		return nil
	})
	require.NoError(t, h(c))
	require.Equal(t, "7:42:42", rid)
}

func TestMetricsCountersStartAtZero(t *testing.T) {
	c := newContext(t, 1)
	var msgs int
	var kb bool
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		msgs, kb = GetCounters(c)
		return nil
	})
	require.NoError(t, h(c))
	require.Zero(t, msgs)
	require.False(t, kb)
	require.True(t, hasKeyboard([]any{&tele.ReplyMarkup{}}))
	require.False(t, hasKeyboard([]any{tele.ModeHTML}))
}
