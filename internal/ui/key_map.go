package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up         key.Binding
	down       key.Binding
	left       key.Binding
	right      key.Binding
	schedule   key.Binding
	reschedule key.Binding
	cancel     key.Binding
	edit       key.Binding
	close      key.Binding
	refresh    key.Binding
	next       key.Binding
	prev       key.Binding
	submit     key.Binding
	picker     key.Binding
	group      key.Binding
	dropSlot   key.Binding
	selectSlot key.Binding
	dayClick   key.Binding
	shorter    key.Binding
	longer     key.Binding
	pageNext   key.Binding
	pagePrev   key.Binding
	month      key.Binding
	week       key.Binding
	day        key.Binding
	back       key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		left:       key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev day")),
		right:      key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next day")),
		schedule:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "schedule")),
		reschedule: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reschedule")),
		cancel:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel")),
		edit:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		close:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "mark closed")),
		refresh:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "refresh")),
		next:       key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		prev:       key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev field")),
		submit:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "submit")),
		picker:     key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "pick slot")),
		group:      key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "add group")),
		dropSlot:   key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "drop last slot")),
		selectSlot: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		dayClick:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "open day")),
		shorter:    key.NewBinding(key.WithKeys("["), key.WithHelp("[", "shorter")),
		longer:     key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "longer")),
		pageNext:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next page")),
		pagePrev:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prev page")),
		month:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "month")),
		week:       key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "week")),
		day:        key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "day")),
		back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.schedule, k.reschedule, k.cancel, k.edit, k.close, k.refresh},
		{k.next, k.prev, k.submit, k.picker, k.group, k.dropSlot},
		{k.back, k.quit},
	}
}
