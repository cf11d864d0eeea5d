package conversation

import (
	"context"
	"crypto/subtle"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/m3rciful/zonebot/internal/broadcast"
	"github.com/m3rciful/zonebot/internal/domain"
	"github.com/m3rciful/zonebot/internal/stats"
)

// Catalog is the view of the catalog store the dialogue needs.
type Catalog interface {
	Items() []string
	Has(id string) bool
	Lookup(id string, w domain.Window) (domain.Entry, bool)
	Commit(ctx context.Context, id string, w domain.Window, e domain.Entry) error
}

// ImageSaver fetches the image behind a channel file handle, stores it for
// (item, w) and returns the stored reference.
type ImageSaver interface {
	SaveImage(ctx context.Context, item string, w domain.Window, handle string) (string, error)
}

// StatsReader exposes the statistics snapshot.
type StatsReader interface {
	Snapshot() stats.Snapshot
}

// Broadcaster sends one text to every known counterparty.
type Broadcaster interface {
	Broadcast(ctx context.Context, text string) broadcast.Result
}

// Admins decides who may enter administrator branches.
type Admins interface {
	IsAdmin(id int64) bool
}

// Deps wires a Machine to its collaborators.
type Deps struct {
	Catalog     Catalog
	Images      ImageSaver
	Stats       StatsReader
	Broadcaster Broadcaster
	Admins      Admins
	Password    string
	WelcomeText string
}

// Machine is the transition function of the dialogue. It holds no sessions;
// callers pass the current session in and store Outcome.Next.
type Machine struct {
	deps Deps
}

// NewMachine validates deps and returns a Machine.
func NewMachine(deps Deps) (*Machine, error) {
	switch {
	case deps.Catalog == nil:
		return nil, fmt.Errorf("conversation: catalog is required")
	case deps.Images == nil:
		return nil, fmt.Errorf("conversation: image saver is required")
	case deps.Stats == nil:
		return nil, fmt.Errorf("conversation: stats reader is required")
	case deps.Broadcaster == nil:
		return nil, fmt.Errorf("conversation: broadcaster is required")
	case deps.Admins == nil:
		return nil, fmt.Errorf("conversation: admin set is required")
	case deps.Password == "":
		return nil, fmt.Errorf("conversation: admin password is required")
	}
	return &Machine{deps: deps}, nil
}

// Transition applies ev to s. An event the current state does not accept
// yields an ignored outcome with s unchanged. A returned error means a
// collaborator failed; s must then be kept as it was.
func (m *Machine) Transition(ctx context.Context, s Session, ev Event) (Outcome, error) {
	if ev.Kind == EventCommand {
		return m.command(ctx, s, ev), nil
	}
	if s.State.adminOnly() && !m.isAdmin(ev.Sender) {
		return stay(s, sendText(msgUnauthorized, nil)), nil
	}
	if ev.isBack() {
		return m.back(s, ev), nil
	}

	switch s.State {
	case StateRole:
		return m.onRole(s, ev), nil
	case StateAdminPassword:
		return m.onPassword(s, ev), nil
	case StateAdminCoin:
		return m.onCoin(s, ev, StateAdminTimeframe), nil
	case StateUserCoin:
		return m.onCoin(s, ev, StateUserTimeframe), nil
	case StateAdminTimeframe:
		return m.onAdminTimeframe(s, ev), nil
	case StateAdminPrice:
		return m.onPrice(s, ev), nil
	case StateAdminImage:
		return m.onImage(ctx, s, ev)
	case StateUserTimeframe:
		return m.onUserTimeframe(s, ev), nil
	case StateBroadcastCompose:
		return m.onBroadcast(ctx, s, ev), nil
	}
	return ignore(s), nil
}

func (m *Machine) command(_ context.Context, s Session, ev Event) Outcome {
	admin := m.isAdmin(ev.Sender)
	switch ev.Command {
	case CommandStart, CommandCancel:
		return Outcome{Next: root(), Actions: []Action{sendText(m.deps.WelcomeText, roleKeyboard(admin))}}
	case CommandStats:
		if !admin {
			return stay(s, sendText(msgUnauthorized, nil))
		}
		return stay(s, sendText(StatsText(m.deps.Stats.Snapshot()), nil))
	case CommandBroadcast:
		if !admin {
			return stay(s, sendText(msgUnauthorized, nil))
		}
		return Outcome{Next: root().with(StateBroadcastCompose), Actions: []Action{sendText(msgBroadcastPrompt, nil)}}
	}
	return ignore(s)
}

// back re-renders the prompt of the previous state in place. Working data is kept.
func (m *Machine) back(s Session, ev Event) Outcome {
	prev, ok := Previous(s.State)
	if !ok {
		return ignore(s)
	}
	next := s.with(prev)
	if prev == StateRole {
		next = root()
	}
	return Outcome{Next: next, Actions: []Action{m.prompt(prev, ev.Sender, ActionEditText)}}
}

// prompt renders the message that asks for the input st expects.
func (m *Machine) prompt(st State, sender int64, kind ActionKind) Action {
	var text string
	var kb Keyboard
	switch st {
	case StateRole:
		text, kb = m.deps.WelcomeText, roleKeyboard(m.isAdmin(sender))
	case StateAdminPassword:
		text, kb = msgPasswordPrompt, backKeyboard()
	case StateAdminCoin, StateUserCoin:
		text, kb = msgChooseCoin, coinKeyboard(m.deps.Catalog.Items())
	case StateAdminTimeframe, StateUserTimeframe:
		text, kb = "Choose timeframe:", windowKeyboard()
	case StateAdminPrice:
		text, kb = msgPricePrompt, backKeyboard()
	case StateAdminImage:
		text = msgImagePrompt
	case StateBroadcastCompose:
		text = msgBroadcastPrompt
	}
	return Action{Kind: kind, Text: text, Keyboard: kb}
}

func (m *Machine) onRole(s Session, ev Event) Outcome {
	if ev.Kind != EventSelection {
		return ignore(s)
	}
	switch ev.Token {
	case TokenAdmin:
		if !m.isAdmin(ev.Sender) {
			return stay(s, sendText(msgUnauthorized, nil))
		}
		return Outcome{Next: s.with(StateAdminPassword), Actions: []Action{m.prompt(StateAdminPassword, ev.Sender, ActionSendText)}}
	case TokenUser:
		return Outcome{Next: s.with(StateUserCoin), Actions: []Action{m.prompt(StateUserCoin, ev.Sender, ActionEditText)}}
	}
	return ignore(s)
}

func (m *Machine) onPassword(s Session, ev Event) Outcome {
	if ev.Kind != EventText {
		return ignore(s)
	}
	if subtle.ConstantTimeCompare([]byte(ev.Text), []byte(m.deps.Password)) != 1 {
		return stay(s, sendText(msgPasswordWrong, backKeyboard()))
	}
	return Outcome{Next: s.with(StateAdminCoin), Actions: []Action{
		sendText(msgPasswordOK, nil),
		m.prompt(StateAdminCoin, ev.Sender, ActionSendText),
	}}
}

func (m *Machine) onCoin(s Session, ev Event, next State) Outcome {
	if ev.Kind != EventSelection || !m.deps.Catalog.Has(ev.Token) {
		return ignore(s)
	}
	n := s.with(next)
	n.Item = ev.Token
	return Outcome{Next: n, Actions: []Action{sendText(selectedText(ev.Token), windowKeyboard())}}
}

func (m *Machine) onAdminTimeframe(s Session, ev Event) Outcome {
	w, ok := selectedWindow(ev)
	if !ok {
		return ignore(s)
	}
	n := s.with(StateAdminPrice)
	n.Window = w
	return Outcome{Next: n, Actions: []Action{m.prompt(StateAdminPrice, ev.Sender, ActionSendText)}}
}

func (m *Machine) onPrice(s Session, ev Event) Outcome {
	if ev.Kind != EventText {
		return ignore(s)
	}
	price, ok := parsePrice(ev.Text)
	if !ok {
		return stay(s, sendText(msgInvalidNumber, backKeyboard()))
	}
	n := s.with(StateAdminImage)
	n.Price, n.HasPrice = price, true
	return Outcome{Next: n, Actions: []Action{
		sendText(updatingPriceText(s.Item, s.Window, price), nil),
		m.prompt(StateAdminImage, ev.Sender, ActionSendText),
	}}
}

func (m *Machine) onImage(ctx context.Context, s Session, ev Event) (Outcome, error) {
	if ev.Kind != EventPhoto || ev.Photo == "" {
		return ignore(s), nil
	}
	if s.Item == "" || s.Window == "" || !s.HasPrice {
		// Working data is incomplete; restart the admin flow.
		return Outcome{Next: root(), Actions: []Action{sendText(m.deps.WelcomeText, roleKeyboard(true))}}, nil
	}
	ref, err := m.deps.Images.SaveImage(ctx, s.Item, s.Window, ev.Photo)
	if err != nil {
		return Outcome{}, fmt.Errorf("save image %s/%s: %w", s.Item, s.Window, err)
	}
	if err := m.deps.Catalog.Commit(ctx, s.Item, s.Window, domain.Entry{Price: s.Price, Image: ref}); err != nil {
		return Outcome{}, fmt.Errorf("commit %s/%s: %w", s.Item, s.Window, err)
	}
	return Outcome{Next: root(), Actions: []Action{sendText(msgImageUpdated, nil)}}, nil
}

func (m *Machine) onUserTimeframe(s Session, ev Event) Outcome {
	w, ok := selectedWindow(ev)
	if !ok {
		return ignore(s)
	}
	entry, found := m.deps.Catalog.Lookup(s.Item, w)
	if !found || !entry.Ready() {
		return stay(s, sendText(noSignalText(s.Item, w), windowKeyboard()))
	}
	return Outcome{Next: root(), Actions: []Action{{
		Kind:     ActionSendPhoto,
		Text:     DeliveryCaption(s.Item, w, entry.Price),
		Image:    entry.Image,
		Keyboard: backKeyboard(),
		Delivery: true,
	}}}
}

func (m *Machine) onBroadcast(ctx context.Context, s Session, ev Event) Outcome {
	if ev.Kind != EventText || strings.TrimSpace(ev.Text) == "" {
		return ignore(s)
	}
	res := m.deps.Broadcaster.Broadcast(ctx, ev.Text)
	return Outcome{Next: root(), Actions: []Action{sendText(BroadcastText(res), nil)}}
}

func (m *Machine) isAdmin(id int64) bool {
	return m.deps.Admins.IsAdmin(id)
}

func selectedWindow(ev Event) (domain.Window, bool) {
	if ev.Kind != EventSelection {
		return "", false
	}
	w, err := domain.ParseWindow(ev.Token)
	return w, err == nil
}

// parsePrice accepts any finite decimal number.
func parsePrice(text string) (float64, bool) {
	p, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, false
	}
	return p, true
}

func sendText(text string, kb Keyboard) Action {
	return Action{Kind: ActionSendText, Text: text, Keyboard: kb}
}

func stay(s Session, actions ...Action) Outcome {
	return Outcome{Next: s, Actions: actions}
}

func ignore(s Session) Outcome {
	return Outcome{Next: s, Ignored: true}
}
