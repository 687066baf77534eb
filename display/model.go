// Package display is the terminal front end: it folds agent events into a
// CueState, renders it, and turns settings changes into agent commands.
package display

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/zenibako/theatremix-display/config"
	"github.com/zenibako/theatremix-display/messages"
	"github.com/zenibako/theatremix-display/queue"
	"github.com/zenibako/theatremix-display/theatremix"
)

// Title is the window title.
const Title = "TheatreMix Remote Display"

const repaintEvery = 100 * time.Millisecond

// HostFileChangedMsg reports a host written to the config file by another
// process. It is applied like a settings change but not saved again.
type HostFileChangedMsg struct {
	Host string
}

type tickMsg time.Time

// hostResolvedMsg carries the outcome of validating a new host.
type hostResolvedMsg struct {
	host string
	save bool
	err  error
}

// Config wires a Model to the agent and the host file.
type Config struct {
	Host     string
	Events   *queue.Queue[theatremix.Event]
	Commands *queue.Queue[theatremix.Command]

	// ConfigPath is where applied hosts are saved; empty disables saving.
	ConfigPath string
	// Resolve validates a host before it is sent to the agent.
	Resolve theatremix.ResolveFunc
	Port    int

	Viewport Viewport
	Logger   *log.Logger
}

// Model is the bubbletea model for the display.
type Model struct {
	host   string
	status string
	state  CueState

	events     *queue.Queue[theatremix.Event]
	commands   *queue.Queue[theatremix.Command]
	configPath string
	resolve    theatremix.ResolveFunc
	port       int

	viewport    Viewport
	alwaysOnTop bool
	settings    *settings
	pending     string // host being validated

	keys   keyMap
	help   help.Model
	width  int
	logger *log.Logger
	now    func() time.Time
}

// New creates a display model.
func New(cfg Config) Model {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	resolve := cfg.Resolve
	if resolve == nil {
		resolve = theatremix.ResolveHost
	}
	port := cfg.Port
	if port <= 0 {
		port = messages.Port
	}
	viewport := cfg.Viewport
	if viewport == nil {
		viewport = NewTerminalViewport(logger)
	}
	return Model{
		host:       cfg.Host,
		status:     StatusConnecting,
		state:      NewCueState(),
		events:     cfg.Events,
		commands:   cfg.Commands,
		configPath: cfg.ConfigPath,
		resolve:    resolve,
		port:       port,
		viewport:   viewport,
		keys:       defaultKeyMap(),
		help:       help.New(),
		logger:     logger.WithPrefix("display"),
		now:        time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tea.SetWindowTitle(Title), tick())
}

func tick() tea.Cmd {
	return tea.Tick(repaintEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.drainEvents()
		return m, tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, m.quit()
		}
		if m.settings == nil {
			switch {
			case key.Matches(msg, m.keys.Quit):
				return m, m.quit()
			case key.Matches(msg, m.keys.Settings):
				m.settings = newSettings(m.host, m.alwaysOnTop)
				return m, m.settings.Init()
			}
			return m, nil
		}

	case settingsAppliedMsg:
		m.settings = nil
		if msg.alwaysOnTop != m.alwaysOnTop {
			m.alwaysOnTop = msg.alwaysOnTop
			m.viewport.SetAlwaysOnTop(msg.alwaysOnTop)
		}
		return m, m.requestHost(msg.host, true)

	case settingsClosedMsg:
		m.settings = nil
		return m, nil

	case HostFileChangedMsg:
		return m, m.requestHost(msg.Host, false)

	case hostResolvedMsg:
		if msg.host != m.pending {
			return m, nil
		}
		m.pending = ""
		if msg.err != nil {
			m.logger.Warn("Rejected host", "host", msg.host, "error", msg.err)
			m.status = invalidHostPrefix + msg.err.Error()
			return m, nil
		}
		m.applyHost(msg.host, msg.save)
		return m, nil
	}

	if m.settings != nil {
		return m, m.settings.Update(msg)
	}
	return m, nil
}

// drainEvents applies every queued agent event.
func (m *Model) drainEvents() {
	for {
		ev, err := m.events.TryRecv()
		if err != nil {
			return
		}
		if status, ok := m.state.Apply(ev, m.now()); ok {
			m.status = status
		}
	}
}

// requestHost validates host off the UI goroutine. Blank hosts are ignored,
// and so is the current host unless the agent reported an error for it. Any
// request supersedes a validation still in flight.
func (m *Model) requestHost(host string, save bool) tea.Cmd {
	m.pending = ""
	if validateHost(host) != nil {
		return nil
	}
	if host == m.host && !strings.HasPrefix(m.status, errorPrefix) {
		return nil
	}
	m.pending = host
	resolve, port := m.resolve, m.port
	return func() tea.Msg {
		_, err := resolve(host, port)
		return hostResolvedMsg{host: host, save: save, err: err}
	}
}

// applyHost switches the agent to host and optionally stores it.
func (m *Model) applyHost(host string, save bool) {
	m.logger.Info("Applying host", "from", m.host, "to", host)
	m.host = host
	if err := m.commands.Send(theatremix.SetHost{Host: host}); err != nil {
		m.logger.Warn("Agent is not accepting commands", "error", err)
	}
	m.status = StatusReconnecting
	m.state.Invalidate()

	if save && m.configPath != "" {
		if err := config.SaveHost(m.configPath, host); err != nil {
			m.logger.Warn("Could not save host", "path", m.configPath, "error", err)
		}
	}
}

// quit stops the agent and the program.
func (m *Model) quit() tea.Cmd {
	m.commands.Close()
	return tea.Quit
}
