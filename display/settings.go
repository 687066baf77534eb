package display

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// settingsAppliedMsg is sent when the settings form is submitted.
type settingsAppliedMsg struct {
	host        string
	alwaysOnTop bool
}

// settingsClosedMsg is sent when the settings form is dismissed.
type settingsClosedMsg struct{}

// settings is the host and window dialog. The form binds to its fields, so
// it must live behind a pointer.
type settings struct {
	host        string
	alwaysOnTop bool
	form        *huh.Form
}

func validateHost(v string) error {
	if strings.TrimSpace(v) == "" {
		return errors.New("host cannot be empty")
	}
	return nil
}

func newSettings(host string, alwaysOnTop bool) *settings {
	s := &settings{host: host, alwaysOnTop: alwaysOnTop}

	keymap := huh.NewDefaultKeyMap()
	keymap.Quit = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close"))

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("TheatreMix Host").
				Description("Console name or address; port 32000 is fixed").
				Value(&s.host).
				Validate(validateHost),
			huh.NewConfirm().
				Title("Always on top").
				Affirmative("On").
				Negative("Off").
				Value(&s.alwaysOnTop),
		).Title("Settings"),
	).
		WithKeyMap(keymap).
		WithShowHelp(true).
		WithWidth(60)

	s.form.SubmitCmd = func() tea.Msg {
		return settingsAppliedMsg{host: strings.TrimSpace(s.host), alwaysOnTop: s.alwaysOnTop}
	}
	s.form.CancelCmd = func() tea.Msg {
		return settingsClosedMsg{}
	}
	return s
}

func (s *settings) Init() tea.Cmd {
	return s.form.Init()
}

func (s *settings) Update(msg tea.Msg) tea.Cmd {
	model, cmd := s.form.Update(msg)
	if f, ok := model.(*huh.Form); ok {
		s.form = f
	}
	return cmd
}

func (s *settings) View() string {
	return s.form.View()
}
