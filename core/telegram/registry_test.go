package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommandMenu(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", Command{Handler: noop, Description: "Start over"})
	reg.RegisterCommand("/stats", Command{Handler: noop, Description: "Usage statistics", AdminOnly: true})
	reg.RegisterCommand("/debug", Command{Handler: noop, Description: "Internal", Hidden: true})
	reg.RegisterCommand("cancel", Command{Handler: noop, Description: "no slash"})
	reg.RegisterCommand("/start", Command{Handler: noop, Description: "duplicate"})
	reg.RegisterCommand("/empty", Command{Handler: noop})

	require.Len(t, reg.Commands(), 3)
	require.Equal(t, []tele.Command{{Text: "start", Description: "Start over"}}, reg.ListCommands(false))
	require.Equal(t, []tele.Command{
		{Text: "start", Description: "Start over"},
		{Text: "stats", Description: "Usage statistics"},
	}, reg.ListCommands(true))
}

func TestRegistryLookupByAlias(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/cancel", Command{Handler: noop, Description: "Back to the start", Aliases: []string{"/stop"}})

	key, _, ok := reg.LookupCommand("/stop")
	require.True(t, ok)
	require.Equal(t, "/cancel", key)

	key, _, ok = reg.LookupCommand("cancel")
	require.True(t, ok)
	require.Equal(t, "/cancel", key)

	_, _, ok = reg.LookupCommand("/nope")
	require.False(t, ok)
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("sel", noop))
	require.Error(t, reg.RegisterCallback("sel", noop))
	require.Error(t, reg.RegisterCallback("", noop))

	_, ok := reg.GetCallback("sel")
	require.True(t, ok)
	require.Equal(t, []string{"sel"}, reg.ListCallbacks())
	require.NotNil(t, reg.CallbackNotFound())
}

func TestBuildPoller(t *testing.T) {
	p := BuildPoller(PollerOptions{RunMode: "longpoll"})
	lp, ok := p.(*tele.LongPoller)
	require.True(t, ok)
	require.Equal(t, 10*time.Second, lp.Timeout)
	require.Equal(t, []string{"message", "callback_query"}, lp.AllowedUpdates)

	p = BuildPoller(PollerOptions{
		RunMode: " Webhook ",
		Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example.com/hook", SecretToken: "s3"},
	})
	wh, ok := p.(*tele.Webhook)
	require.True(t, ok)
	require.Equal(t, "0.0.0.0:8443", wh.Listen)
	require.Equal(t, "https://bot.example.com/hook", wh.Endpoint.PublicURL)
	require.Equal(t, "s3", wh.SecretToken)
	require.Equal(t, AllowedUpdates, wh.AllowedUpdates)
}
