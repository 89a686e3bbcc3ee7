package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Quit         key.Binding
	ForceQuit    key.Binding
	Back         key.Binding
	Help         key.Binding
	Login        key.Binding
	Signup       key.Binding
	Dashboard    key.Binding
	Admin        key.Binding
	Notify       key.Binding
	Logout       key.Binding
	RefreshToken key.Binding
	Home         key.Binding
}

var Keys = KeyMap{
	Quit:         key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit/back")),
	ForceQuit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	Back:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Login:        key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "login")),
	Signup:       key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "sign up")),
	Dashboard:    key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "dashboard")),
	Admin:        key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "admin")),
	Notify:       key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "notifications")),
	Logout:       key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "logout")),
	RefreshToken: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "renew session")),
	Home:         key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "home")),
}

// helpBindings is the order shown by the help overlay.
func (k KeyMap) helpBindings() []key.Binding {
	return []key.Binding{
		k.Home, k.Login, k.Signup, k.Dashboard, k.Admin, k.Notify,
		k.RefreshToken, k.Logout, k.Back, k.Help, k.Quit, k.ForceQuit,
	}
}
