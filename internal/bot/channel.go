package bot

import (
	"context"
	"errors"

	"github.com/m3rciful/zonebot/core/telegram/keyboard"
	"github.com/m3rciful/zonebot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

// selectUnique is the callback unique shared by every conversation button;
// the button token travels as the payload.
const selectUnique = "sel"

// Runner executes one outbound API call, possibly with retries.
type Runner interface {
	Do(ctx context.Context, action, endpoint string, run func() error) error
}

// channel replies to the counterparty behind one update.
type channel struct {
	c      tele.Context
	runner Runner
}

var _ conversation.Channel = (*channel)(nil)

func newChannel(c tele.Context, r Runner) *channel {
	return &channel{c: c, runner: r}
}

func (ch *channel) do(ctx context.Context, action, endpoint string, run func() error) error {
	if ch.runner == nil {
		return run()
	}
	return ch.runner.Do(ctx, action, endpoint, run)
}

func (ch *channel) SendText(ctx context.Context, text string, kb conversation.Keyboard) error {
	opts := sendOptions(kb)
	return ch.do(ctx, "send.text", "sendMessage", func() error {
		return ch.c.Send(text, opts...)
	})
}

func (ch *channel) SendPhoto(ctx context.Context, image, caption string, kb conversation.Keyboard) error {
	opts := sendOptions(kb)
	return ch.do(ctx, "send.photo", "sendPhoto", func() error {
		photo := &tele.Photo{File: tele.FromDisk(image), Caption: caption}
		return ch.c.Send(photo, opts...)
	})
}

// EditText rewrites the message whose button was pressed. Photos cannot be
// edited into text, so they get a fresh message instead, as do plain messages.
func (ch *channel) EditText(ctx context.Context, text string, kb conversation.Keyboard) error {
	msg := ch.c.Message()
	if ch.c.Callback() == nil || msg == nil || msg.Photo != nil {
		return ch.SendText(ctx, text, kb)
	}
	opts := sendOptions(kb)
	return ch.do(ctx, "edit.text", "editMessageText", func() error {
		err := ch.c.Edit(text, opts...)
		if errors.Is(err, tele.ErrSameMessageContent) {
			return nil
		}
		return err
	})
}

func sendOptions(kb conversation.Keyboard) []any {
	m := markup(kb)
	if m == nil {
		return nil
	}
	return []any{m}
}

// markup renders kb as an inline keyboard.
func markup(kb conversation.Keyboard) *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(kb))
	for _, row := range kb {
		r := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			r = append(r, keyboard.InlineBtn{Text: b.Text, Unique: selectUnique, Data: b.Token})
		}
		rows = append(rows, r)
	}
	return keyboard.InlineButtonsRows(rows...)
}
