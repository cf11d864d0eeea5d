package conversation

// Previous returns the state a back-navigation from s lands on. It depends on
// s alone, never on how the dialogue got there. ok is false for states that
// have no back edge; a back event there is ignored.
func Previous(s State) (prev State, ok bool) {
	switch s {
	case StateRole:
		return StateRole, true
	case StateAdminPassword:
		return StateRole, true
	case StateAdminCoin:
		return StateAdminPassword, true
	case StateAdminTimeframe:
		return StateRole, true
	case StateAdminPrice:
		return StateAdminCoin, true
	case StateUserCoin:
		return StateRole, true
	case StateUserTimeframe:
		return StateUserCoin, true
	case StateAdminImage, StateBroadcastCompose:
		return s, false
	}
	return s, false
}
