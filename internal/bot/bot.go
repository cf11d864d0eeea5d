// Package bot connects the conversation engine to Telegram: it turns updates
// into events, runs them through the engine and replies on the same chat.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/zonebot/core/logger"
	coretelegram "github.com/m3rciful/zonebot/core/telegram"
	"github.com/m3rciful/zonebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/zonebot/core/telegram/helpers"
	"github.com/m3rciful/zonebot/core/telegram/router"
	tgsender "github.com/m3rciful/zonebot/core/telegram/sender"
	"github.com/m3rciful/zonebot/internal/app"
	"github.com/m3rciful/zonebot/internal/broadcast"
	"github.com/m3rciful/zonebot/internal/config"
	"github.com/m3rciful/zonebot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

// Bot is a wired zonebot ready to run.
type Bot struct {
	cfg        *config.Config
	svc        *app.Services
	tb         *tele.Bot
	engine     *conversation.Engine
	dispatcher *tgsender.Dispatcher
	registry   *coretelegram.Registry
}

// Bootstrap opens the stores for cfg and wires the Telegram bot around them.
func Bootstrap(cfg *config.Config) (*Bot, error) {
	svc, err := app.Open(context.Background(), cfg, app.Options{})
	if err != nil {
		return nil, err
	}
	tb, err := coretelegram.NewBot(cfg.CoreConfig(), false)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	b, err := New(cfg, svc, tb)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	return b, nil
}

// New wires the conversation around already opened services and bot client.
func New(cfg *config.Config, svc *app.Services, tb *tele.Bot) (*Bot, error) {
	dispatcher := tgsender.NewDispatcher(tgsender.Options{MaxRetries: 2})
	bc := broadcast.New(textSender{bot: tb}, svc.Audience, dispatcher)

	machine, err := conversation.NewMachine(conversation.Deps{
		Catalog:     svc.Catalog,
		Images:      imageSaver{files: tb, store: svc.Images},
		Stats:       svc.Stats,
		Broadcaster: bc,
		Admins:      cfg.Telegram,
		Password:    cfg.Bot.AdminPassword,
		WelcomeText: cfg.Bot.WelcomeText,
	})
	if err != nil {
		dispatcher.Close()
		return nil, fmt.Errorf("bot: %w", err)
	}

	b := &Bot{
		cfg:        cfg,
		svc:        svc,
		tb:         tb,
		engine:     conversation.NewEngine(machine, svc.Stats),
		dispatcher: dispatcher,
		registry:   coretelegram.NewRegistry(),
	}
	if err := b.register(); err != nil {
		dispatcher.Close()
		return nil, err
	}
	return b, nil
}

func (b *Bot) register() error {
	commands := []struct {
		name string
		cmd  conversation.Command
		desc string
		adm  bool
	}{
		{"/start", conversation.CommandStart, "Start over", false},
		{"/cancel", conversation.CommandCancel, "Back to the start menu", false},
		{"/stats", conversation.CommandStats, "Usage statistics", true},
		{"/send_to_all", conversation.CommandBroadcast, "Message every user", true},
	}
	for _, c := range commands {
		cmd := c.cmd
		b.registry.RegisterCommand(c.name, coretelegram.Command{
			Description: c.desc,
			AdminOnly:   c.adm,
			Handler: func(ctx tele.Context) error {
				return b.dispatch(ctx, conversation.Cmd(senderID(ctx), cmd))
			},
		})
	}
	b.registry.SetAdminChats(b.cfg.Telegram.AdminIDs)
	return b.registry.RegisterCallback(selectUnique, b.onSelect)
}

// TelegramRunOptions describes how the core runtime should drive this bot.
func (b *Bot) TelegramRunOptions() (coretelegram.RunOptions, error) {
	routes := router.CommandRoutes(b.registry, router.CommandRouteOptions{
		Admins: b.cfg.Telegram,
		OnAdminReject: func(c tele.Context) error {
			return c.Send(conversation.UnauthorizedText)
		},
	})
	routes = append(routes, router.CallbackRoute(b.registry, router.CallbackOptions{}))
	routes = append(routes, router.MessageRoutes(b.registry, router.MessageOptions{
		Text:  b.onText,
		Photo: b.onPhoto,
	})...)

	return coretelegram.RunOptions{
		Config:     b.cfg.CoreConfig(),
		Registry:   b.registry,
		Bot:        b.tb,
		Dispatcher: b.dispatcher,
		Middlewares: coretelegram.DefaultMiddlewares(
			coretelegram.Use("audience", captureMiddleware(b.svc.Audience)),
		),
		Routes: routes,
		OnStop: func(ctx context.Context, _ coretelegram.Runtime) error {
			snap := b.svc.Stats.Snapshot()
			logger.Info(ctx, "stats", "stats.final",
				slog.Int64("total", snap.Total),
				slog.Int("users", snap.Audience),
			)
			return b.svc.Close()
		},
	}, nil
}

func (b *Bot) onSelect(c tele.Context) error {
	return b.dispatch(c, conversation.Selection(senderID(c), callbacks.CallbackPayload(c)))
}

func (b *Bot) onText(c tele.Context) error {
	return b.dispatch(c, conversation.Text(senderID(c), c.Text()))
}

func (b *Bot) onPhoto(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Photo == nil {
		return nil
	}
	return b.dispatch(c, conversation.Photo(senderID(c), msg.Photo.FileID))
}

func (b *Bot) dispatch(c tele.Context, ev conversation.Event) error {
	if c.Sender() == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	return b.engine.Handle(ctx, newChannel(c, b.dispatcher), ev)
}

func senderID(c tele.Context) int64 {
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}
