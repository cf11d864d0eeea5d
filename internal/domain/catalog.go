package domain

import "fmt"

// Window is the time horizon a catalog entry and the statistics are tracked along.
type Window string

const (
	WindowDay   Window = "day"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
)

// Windows lists every window in display order.
var Windows = []Window{WindowDay, WindowWeek, WindowMonth}

// ParseWindow accepts the lowercase token used in selections and storage columns.
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case WindowDay, WindowWeek, WindowMonth:
		return Window(s), nil
	}
	return "", fmt.Errorf("unknown window %q", s)
}

// Label returns the capitalised button text for the window.
func (w Window) Label() string {
	switch w {
	case WindowDay:
		return "Day"
	case WindowWeek:
		return "Week"
	case WindowMonth:
		return "Month"
	}
	return string(w)
}

// Entry is the price/image pair published for one item and window.
type Entry struct {
	Price float64
	Image string
}

// Ready reports whether the entry can be delivered to a user.
func (e Entry) Ready() bool {
	return e.Image != ""
}

// Item groups the per-window entries of a tradable item.
type Item struct {
	ID      string
	Entries map[Window]Entry
}

// NewItem returns an item with an empty entry for every window.
func NewItem(id string) Item {
	entries := make(map[Window]Entry, len(Windows))
	for _, w := range Windows {
		entries[w] = Entry{}
	}
	return Item{ID: id, Entries: entries}
}

// Clone returns a deep copy of the item.
func (it Item) Clone() Item {
	out := Item{ID: it.ID, Entries: make(map[Window]Entry, len(it.Entries))}
	for w, e := range it.Entries {
		out.Entries[w] = e
	}
	return out
}
