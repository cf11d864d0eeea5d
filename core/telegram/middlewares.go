package telegram

import (
	"github.com/m3rciful/zonebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares builds the shared middleware chain for bots. Extra
// middlewares run after the shared ones, so they see the message counters
// and the update context.
func DefaultMiddlewares(extra ...Middleware) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
		{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	}
	return append(mws, extra...)
}

// Use adapts a telebot middleware to the named form RunOptions expects.
func Use(name string, mw tele.MiddlewareFunc) Middleware {
	return Middleware{Name: name, Use: mw}
}
