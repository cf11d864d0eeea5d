package bot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/zonebot/core/config"
	"github.com/m3rciful/zonebot/internal/app"
	"github.com/m3rciful/zonebot/internal/broadcast"
	"github.com/m3rciful/zonebot/internal/config"
	"github.com/m3rciful/zonebot/internal/conversation"
	"github.com/m3rciful/zonebot/internal/domain"
)

const (
	adminID int64 = 100
	userID  int64 = 200
)

func newTestBot(t *testing.T) *Bot {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Telegram = coreconfig.TelegramConfig{Token: "test", AdminIDs: []int64{adminID}}
	cfg.Bot = config.BotConfig{AdminPassword: "hunter2", WelcomeText: "Welcome!", Items: []string{"BTC", "ETH"}}
	cfg.Storage = config.StorageConfig{
		Driver:             config.DriverFile,
		CounterpartiesFile: filepath.Join(dir, "users.txt"),
		CatalogFile:        filepath.Join(dir, "coins.csv"),
		StatsFile:          filepath.Join(dir, "stats.csv"),
		ImageDir:           filepath.Join(dir, "images"),
	}
	svc, err := app.Open(context.Background(), cfg, app.Options{
		LoggerInit: func(*coreconfig.Config) error { return nil },
	})
	require.NoError(t, err)

	tb, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	b, err := New(cfg, svc, tb)
	require.NoError(t, err)
	t.Cleanup(func() {
		b.dispatcher.Close()
		_ = svc.Close()
	})
	return b
}

func startHandler(t *testing.T, b *Bot) tele.HandlerFunc {
	t.Helper()
	_, cmd, ok := b.registry.LookupCommand("/start")
	require.True(t, ok)
	return cmd.Handler
}

func TestStartShowsRoleKeyboard(t *testing.T) {
	b := newTestBot(t)

	c := messageContext(adminID, "/start")
	require.NoError(t, startHandler(t, b)(c))
	require.Equal(t, []any{"Welcome!"}, c.sent)
	m := c.lastMarkup()
	require.NotNil(t, m)
	require.Len(t, m.InlineKeyboard, 1)
	require.Len(t, m.InlineKeyboard[0], 2)
	require.Equal(t, selectUnique, m.InlineKeyboard[0][0].Unique)
	require.Equal(t, conversation.TokenAdmin, m.InlineKeyboard[0][0].Data)

	c = messageContext(userID, "/start")
	require.NoError(t, startHandler(t, b)(c))
	require.Len(t, c.lastMarkup().InlineKeyboard[0], 1)
}

func TestUserSelectionEditsMenu(t *testing.T) {
	b := newTestBot(t)

	c := callbackContext(userID, selectUnique, conversation.TokenUser, nil)
	require.NoError(t, b.onSelect(c))
	require.Empty(t, c.sent)
	require.Len(t, c.edited, 1)
	require.Equal(t, conversation.StateUserCoin, b.engine.Session(userID).State)
}

func TestAdminFlowStoresImage(t *testing.T) {
	b := newTestBot(t)
	saved := &fakeImageStore{}
	b.engine = rebuildEngine(t, b, imageSaver{files: fakeFiles{"file-1": "png-bytes"}, store: saved})

	steps := []func() error{
		func() error { return b.onSelect(callbackContext(adminID, selectUnique, conversation.TokenAdmin, nil)) },
		func() error { return b.onText(messageContext(adminID, "hunter2")) },
		func() error { return b.onSelect(callbackContext(adminID, selectUnique, "BTC", nil)) },
		func() error { return b.onSelect(callbackContext(adminID, selectUnique, "week", nil)) },
		func() error { return b.onText(messageContext(adminID, "64000")) },
		func() error { return b.onPhoto(photoContext(adminID, "file-1")) },
	}
	for _, step := range steps {
		require.NoError(t, step())
	}

	require.Equal(t, "png-bytes", saved.data)
	e, ok := b.svc.Catalog.Lookup("BTC", domain.WindowWeek)
	require.True(t, ok)
	require.Equal(t, domain.Entry{Price: 64000, Image: "stored/BTC/week.png"}, e)
	require.Equal(t, conversation.StateRole, b.engine.Session(adminID).State)
}

func rebuildEngine(t *testing.T, b *Bot, images conversation.ImageSaver) *conversation.Engine {
	t.Helper()
	m, err := conversation.NewMachine(conversation.Deps{
		Catalog:     b.svc.Catalog,
		Images:      images,
		Stats:       b.svc.Stats,
		Broadcaster: fakeBroadcaster{},
		Admins:      b.cfg.Telegram,
		Password:    b.cfg.Bot.AdminPassword,
		WelcomeText: b.cfg.Bot.WelcomeText,
	})
	require.NoError(t, err)
	return conversation.NewEngine(m, b.svc.Stats)
}

func TestEditFallsBackToSendOnPhoto(t *testing.T) {
	photoMsg := &tele.Message{Chat: &tele.Chat{ID: userID}, Photo: &tele.Photo{}}
	c := callbackContext(userID, selectUnique, conversation.TokenBack, photoMsg)
	ch := newChannel(c, nil)
	require.NoError(t, ch.EditText(context.Background(), "Welcome!", nil))
	require.Equal(t, []any{"Welcome!"}, c.sent)
	require.Empty(t, c.edited)
}

func TestEditIgnoresUnchangedContent(t *testing.T) {
	c := callbackContext(userID, selectUnique, conversation.TokenBack, nil)
	c.editErr = tele.ErrSameMessageContent
	require.NoError(t, newChannel(c, nil).EditText(context.Background(), "menu", nil))

	c.editErr = errors.New("telegram: message to edit not found")
	require.Error(t, newChannel(c, nil).EditText(context.Background(), "menu", nil))
}

func TestSendPhotoUsesFileOnDisk(t *testing.T) {
	c := messageContext(userID, "")
	kb := conversation.Keyboard{{{Text: "Go Back", Token: conversation.TokenBack}}}
	require.NoError(t, newChannel(c, nil).SendPhoto(context.Background(), "images/BTC/day.png", "caption", kb))

	require.Len(t, c.sent, 1)
	p, ok := c.sent[0].(*tele.Photo)
	require.True(t, ok)
	require.Equal(t, "caption", p.Caption)
	require.Equal(t, "images/BTC/day.png", p.FileLocal)
	require.Equal(t, conversation.TokenBack, c.lastMarkup().InlineKeyboard[0][0].Data)
}

func TestCaptureMiddlewareRegistersSender(t *testing.T) {
	reg := &fakeRegistrar{}
	called := false
	h := captureMiddleware(reg)(func(tele.Context) error { called = true; return nil })

	require.NoError(t, h(messageContext(userID, "hi")))
	require.True(t, called)
	require.Equal(t, []int64{userID}, reg.ids)

	reg.err = errors.New("disk full")
	called = false
	require.NoError(t, h(messageContext(adminID, "hi")))
	require.True(t, called)
}

func TestTextSenderAddressesChat(t *testing.T) {
	m := &fakeMessenger{}
	require.NoError(t, textSender{bot: m}.SendText(context.Background(), 42, "market update"))
	require.Equal(t, "42", m.to.Recipient())
	require.Equal(t, "market update", m.what)
}

func TestImageSaverPropagatesDownloadError(t *testing.T) {
	s := imageSaver{files: fakeFiles{}, store: &fakeImageStore{}}
	_, err := s.SaveImage(context.Background(), "BTC", domain.WindowDay, "missing")
	require.Error(t, err)
}

type fakeFiles map[string]string

func (f fakeFiles) File(file *tele.File) (io.ReadCloser, error) {
	data, ok := f[file.FileID]
	if !ok {
		return nil, errors.New("file not found")
	}
	return io.NopCloser(bytes.NewBufferString(data)), nil
}

type fakeImageStore struct {
	data string
}

func (f *fakeImageStore) Save(_ context.Context, item string, w domain.Window, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.data = string(b)
	return "stored/" + item + "/" + string(w) + ".png", nil
}

type fakeRegistrar struct {
	ids []int64
	err error
}

func (f *fakeRegistrar) Register(_ context.Context, id int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.ids = append(f.ids, id)
	return true, nil
}

type fakeMessenger struct {
	to   tele.Recipient
	what any
}

func (f *fakeMessenger) Send(to tele.Recipient, what any, _ ...any) (*tele.Message, error) {
	f.to, f.what = to, what
	return &tele.Message{}, nil
}

type fakeBroadcaster struct{}

func (fakeBroadcaster) Broadcast(context.Context, string) broadcast.Result { return broadcast.Result{} }
