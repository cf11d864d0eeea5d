package middleware

import tele "gopkg.in/telebot.v4"

// Admins decides whether a sender is an administrator.
type Admins interface {
	IsAdmin(id int64) bool
}

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	Admins   Admins
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware lets only administrators reach downstream handlers.
// Without an admin set every sender is rejected.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || opts.Admins == nil || !opts.Admins.IsAdmin(sender.ID) {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
