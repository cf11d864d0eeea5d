// Package conversation implements the dialogue: a closed set of states, an
// explicit transition function over (state, event), and the Engine that keeps
// one session per counterparty and executes the resulting actions.
package conversation

import (
	"fmt"

	"github.com/m3rciful/zonebot/internal/domain"
)

// State is one step of the dialogue. The zero value is StateRole.
type State int

const (
	StateRole State = iota
	StateAdminPassword
	StateAdminCoin
	StateAdminTimeframe
	StateAdminPrice
	StateAdminImage
	StateUserCoin
	StateUserTimeframe
	StateBroadcastCompose
)

// States lists every state in declaration order.
var States = []State{
	StateRole,
	StateAdminPassword,
	StateAdminCoin,
	StateAdminTimeframe,
	StateAdminPrice,
	StateAdminImage,
	StateUserCoin,
	StateUserTimeframe,
	StateBroadcastCompose,
}

func (s State) String() string {
	switch s {
	case StateRole:
		return "role"
	case StateAdminPassword:
		return "admin_password"
	case StateAdminCoin:
		return "admin_coin"
	case StateAdminTimeframe:
		return "admin_timeframe"
	case StateAdminPrice:
		return "admin_price"
	case StateAdminImage:
		return "admin_image"
	case StateUserCoin:
		return "user_coin"
	case StateUserTimeframe:
		return "user_timeframe"
	case StateBroadcastCompose:
		return "broadcast_compose"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// adminOnly reports whether s belongs to an administrator branch.
func (s State) adminOnly() bool {
	switch s {
	case StateAdminPassword, StateAdminCoin, StateAdminTimeframe,
		StateAdminPrice, StateAdminImage, StateBroadcastCompose:
		return true
	case StateRole, StateUserCoin, StateUserTimeframe:
		return false
	}
	return false
}

// Session is the per-counterparty dialogue record. Working data survives
// back-navigation and is dropped only when the dialogue returns to the root.
type Session struct {
	State  State
	Item   string
	Window domain.Window
	// Price is meaningful only when HasPrice is set.
	Price    float64
	HasPrice bool
}

// root returns the initial session.
func root() Session { return Session{State: StateRole} }

// with returns a copy of s moved to next.
func (s Session) with(next State) Session {
	s.State = next
	return s
}
