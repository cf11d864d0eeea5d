package router

import (
	"strings"
	"time"

	tg "github.com/m3rciful/zonebot/core/telegram"
	"github.com/m3rciful/zonebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MessageOptions names the handlers for plain messages.
type MessageOptions struct {
	// Text receives every text that is not a registered command alias.
	Text  tele.HandlerFunc
	Photo tele.HandlerFunc
}

// MessageRoutes builds handlers for text and photo messages. A slash text
// matching a command alias goes to that command; the rest goes to opts.Text, then to the
// registry's text fallback.
func MessageRoutes(reg *tg.Registry, opts MessageOptions) []tg.Route {
	textHandler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if reg != nil && strings.HasPrefix(text, "/") {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if opts.Text != nil {
			return handleWithSummary(c, "text", start, "", "", func() error {
				return opts.Text(c)
			})
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	photoHandler := func(c tele.Context) error {
		start := time.Now()
		if opts.Photo != nil {
			return handleWithSummary(c, "photo", start, "", "", func() error {
				return opts.Photo(c)
			})
		}
		logHandlerSummary(c, "unexpected_photo", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(textHandler)),
		},
		{
			Endpoint: tele.OnPhoto,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(photoHandler)),
		},
	}
}
