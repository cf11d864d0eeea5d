package bot

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

// fakeContext records replies instead of calling the Bot API.
type fakeContext struct {
	tele.Context

	mu      sync.Mutex
	update  tele.Update
	store   map[string]any
	sent    []any
	edited  []any
	opts    [][]any
	editErr error
}

func messageContext(from int64, text string) *fakeContext {
	return &fakeContext{update: tele.Update{ID: 1, Message: &tele.Message{
		Sender: &tele.User{ID: from},
		Chat:   &tele.Chat{ID: from, Type: tele.ChatPrivate},
		Text:   text,
	}}}
}

func photoContext(from int64, fileID string) *fakeContext {
	c := messageContext(from, "")
	c.update.Message.Photo = &tele.Photo{File: tele.File{FileID: fileID}}
	return c
}

// callbackContext presses a button on msg.
func callbackContext(from int64, unique, payload string, msg *tele.Message) *fakeContext {
	if msg == nil {
		msg = &tele.Message{Chat: &tele.Chat{ID: from}, Text: "menu"}
	}
	return &fakeContext{update: tele.Update{ID: 2, Callback: &tele.Callback{
		Sender:  &tele.User{ID: from},
		Message: msg,
		Unique:  unique,
		Data:    payload,
	}}}
}

func (f *fakeContext) Update() tele.Update { return f.update }

func (f *fakeContext) Sender() *tele.User {
	switch {
	case f.update.Callback != nil:
		return f.update.Callback.Sender
	case f.update.Message != nil:
		return f.update.Message.Sender
	}
	return nil
}

func (f *fakeContext) Chat() *tele.Chat {
	if m := f.Message(); m != nil {
		return m.Chat
	}
	return nil
}

func (f *fakeContext) Message() *tele.Message {
	switch {
	case f.update.Callback != nil:
		return f.update.Callback.Message
	case f.update.Message != nil:
		return f.update.Message
	}
	return nil
}

func (f *fakeContext) Callback() *tele.Callback { return f.update.Callback }

func (f *fakeContext) Text() string {
	if f.update.Message != nil {
		return f.update.Message.Text
	}
	return ""
}

func (f *fakeContext) Get(key string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store[key]
}

func (f *fakeContext) Set(key string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.store == nil {
		f.store = map[string]any{}
	}
	f.store[key] = v
}

func (f *fakeContext) Send(what any, opts ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, what)
	f.opts = append(f.opts, opts)
	return nil
}

func (f *fakeContext) Edit(what any, opts ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edited = append(f.edited, what)
	f.opts = append(f.opts, opts)
	return nil
}

func (f *fakeContext) Respond(...*tele.CallbackResponse) error { return nil }

// lastMarkup returns the reply markup passed with the latest reply.
func (f *fakeContext) lastMarkup() *tele.ReplyMarkup {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.opts) == 0 {
		return nil
	}
	for _, o := range f.opts[len(f.opts)-1] {
		if m, ok := o.(*tele.ReplyMarkup); ok {
			return m
		}
	}
	return nil
}
