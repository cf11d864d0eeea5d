package conversation

// EventKind classifies inbound events.
type EventKind int

const (
	EventText EventKind = iota
	EventSelection
	EventPhoto
	EventCommand
)

// Command is an administrator or navigation command available in every state.
type Command string

const (
	CommandStart     Command = "start"
	CommandCancel    Command = "cancel"
	CommandStats     Command = "stats"
	CommandBroadcast Command = "send_to_all"
)

// Selection tokens with a fixed meaning.
const (
	TokenAdmin = "admin"
	TokenUser  = "user"
	TokenBack  = "go_back"
)

// Event is one inbound message from a counterparty.
type Event struct {
	Kind   EventKind
	Sender int64

	Text    string
	Token   string
	Photo   string // channel file handle
	Command Command
}

// Text builds a text event.
func Text(sender int64, text string) Event {
	return Event{Kind: EventText, Sender: sender, Text: text}
}

// Selection builds a button selection event.
func Selection(sender int64, token string) Event {
	return Event{Kind: EventSelection, Sender: sender, Token: token}
}

// Photo builds a photo event.
func Photo(sender int64, handle string) Event {
	return Event{Kind: EventPhoto, Sender: sender, Photo: handle}
}

// Cmd builds a command event.
func Cmd(sender int64, c Command) Event {
	return Event{Kind: EventCommand, Sender: sender, Command: c}
}

func (e Event) isBack() bool {
	return e.Kind == EventSelection && e.Token == TokenBack
}

// ActionKind classifies outbound actions.
type ActionKind int

const (
	ActionSendText ActionKind = iota
	ActionSendPhoto
	ActionEditText
)

func (k ActionKind) String() string {
	switch k {
	case ActionSendText:
		return "send_text"
	case ActionSendPhoto:
		return "send_photo"
	case ActionEditText:
		return "edit_text"
	}
	return "unknown"
}

// Button is one inline keyboard button; Token comes back as a Selection.
type Button struct {
	Text  string
	Token string
}

// Keyboard is a list of button rows.
type Keyboard [][]Button

// Action is one outbound message. For ActionSendPhoto, Image holds the image
// reference and Text the caption.
type Action struct {
	Kind     ActionKind
	Text     string
	Image    string
	Keyboard Keyboard
	// Delivery marks a content delivery that is counted once it succeeds.
	Delivery bool
}

// Outcome is the result of one transition.
type Outcome struct {
	Next    Session
	Actions []Action
	// Ignored is set when the event did not match the current state.
	Ignored bool
}
