package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/m3rciful/zonebot/core/logger"
	tghelpers "github.com/m3rciful/zonebot/core/telegram/helpers"
	"github.com/m3rciful/zonebot/internal/domain"

	tele "gopkg.in/telebot.v4"
)

// FileFetcher downloads files by handle. *tele.Bot satisfies it.
type FileFetcher interface {
	File(file *tele.File) (io.ReadCloser, error)
}

// ImageWriter places an image for (item, w) and returns its reference.
type ImageWriter interface {
	Save(ctx context.Context, item string, w domain.Window, r io.Reader) (string, error)
}

// imageSaver downloads an uploaded photo and stores it locally.
type imageSaver struct {
	files FileFetcher
	store ImageWriter
}

func (s imageSaver) SaveImage(ctx context.Context, item string, w domain.Window, handle string) (string, error) {
	rc, err := s.files.File(&tele.File{FileID: handle})
	if err != nil {
		return "", fmt.Errorf("download photo: %w", err)
	}
	defer rc.Close()
	return s.store.Save(ctx, item, w, rc)
}

// Messenger sends to an arbitrary chat. *tele.Bot satisfies it.
type Messenger interface {
	Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error)
}

// textSender delivers broadcast texts.
type textSender struct {
	bot Messenger
}

func (s textSender) SendText(_ context.Context, to int64, text string) error {
	_, err := s.bot.Send(tele.ChatID(to), text)
	return err
}

// Registrar records counterparties.
type Registrar interface {
	Register(ctx context.Context, id int64) (bool, error)
}

// captureMiddleware registers every sender before the update is handled.
// A storage failure is logged and does not block the update.
func captureMiddleware(reg Registrar) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if u := c.Sender(); u != nil && !u.IsBot {
				ctx := tghelpers.BuildContext(c)
				if _, err := reg.Register(ctx, u.ID); err != nil {
					logger.Error(ctx, "audience", "audience.register",
						slog.String("status", "fail"),
						slog.String("err", err.Error()),
					)
				}
			}
			return next(c)
		}
	}
}
