package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	scenebridge "github.com/sceneforge/scene-bridge"
	"github.com/sceneforge/scene-bridge/config"
	"github.com/sceneforge/scene-bridge/errors"
	"github.com/sceneforge/scene-bridge/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	settledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectArtboard modelState = iota
	stateSelectMachine
	stateRunning
)

const tickInterval = 33 * time.Millisecond

type interactiveModel struct {
	err      error
	sess     *session.Session
	filename string

	file      scenebridge.Handle
	artboard  scenebridge.Handle
	machine   scenebridge.Handle
	artboards []string
	machines  []string
	selected  int

	input   textinput.Model
	state   modelState
	loadCfg *config.Config
	frame   int
	settled bool
	status  string
}

// orNil flattens a typed nil error pointer into a plain nil interface.
func orNil(e *errors.Error) error {
	if e == nil {
		return nil
	}
	return e
}

type loadedMsg struct {
	err  error
	sess *session.Session
	file scenebridge.Handle
	arts []string
}

type machinesMsg struct {
	err      error
	machines []string
}

type startedMsg struct {
	err error
}

type tickMsg time.Time

func newInteractiveModel(filename string, cfg *config.Config) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "bool <name> true|false / num <name> <value> / fire <name>"
	ti.Prompt = "> "
	ti.Width = 60
	return &interactiveModel{
		filename: filename,
		input:    ti,
		state:    stateSelectArtboard,
		loadCfg:  cfg,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadScene
}

func (m *interactiveModel) loadScene() tea.Msg {
	data, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}

	sess, err := newSession(m.loadCfg, zap.NewNop())
	if err != nil {
		return loadedMsg{err: err}
	}
	if serr := sess.Acquire("tui"); serr != nil {
		return loadedMsg{err: serr}
	}

	file, imported := sess.ImportFile(data)
	if _, err := await(sess, imported); err != nil {
		sess.Release("tui")
		return loadedMsg{err: err}
	}
	arts, err := await(sess, sess.ListArtboards(file))
	if err != nil {
		sess.Release("tui")
		return loadedMsg{err: err}
	}
	return loadedMsg{sess: sess, file: file, arts: arts}
}

func (m *interactiveModel) selectArtboard() tea.Msg {
	ab, created := m.sess.InstanceArtboard(m.file, session.ByIndex(m.selected))
	if _, err := await(m.sess, created); err != nil {
		return machinesMsg{err: err}
	}
	m.artboard = ab
	machines, err := await(m.sess, m.sess.ListStateMachines(ab))
	if err != nil {
		return machinesMsg{err: err}
	}
	return machinesMsg{machines: machines}
}

func (m *interactiveModel) selectMachine() tea.Msg {
	sm, created := m.sess.InstanceStateMachine(m.artboard, session.ByIndex(m.selected))
	if _, err := await(m.sess, created); err != nil {
		return startedMsg{err: err}
	}
	m.machine = sm
	return startedMsg{}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.teardown()
			return m, tea.Quit

		case "q":
			if m.state != stateRunning {
				m.teardown()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state != stateRunning && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			max := len(m.artboards) - 1
			if m.state == stateSelectMachine {
				max = len(m.machines) - 1
			}
			if m.state != stateRunning && m.selected < max {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectArtboard:
				if len(m.artboards) > 0 {
					return m, m.selectArtboard
				}
			case stateSelectMachine:
				if len(m.machines) > 0 {
					return m, m.selectMachine
				}
			case stateRunning:
				m.status = m.runCommand(m.input.Value())
				m.input.SetValue("")
			}

		case "esc":
			if m.state == stateRunning {
				m.teardown()
				return m, tea.Quit
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.sess = msg.sess
		m.file = msg.file
		m.artboards = msg.arts

	case machinesMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.machines = msg.machines
		m.selected = 0
		m.state = stateSelectMachine

	case startedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.state = stateRunning
		m.input.Focus()
		return m, tick()

	case tickMsg:
		if m.state != stateRunning {
			return m, nil
		}
		if serr := m.sess.AdvanceStateMachine(m.machine, tickInterval); serr != nil {
			m.err = serr
			return m, nil
		}
		m.sess.PollMessages()
		m.frame++
		m.drainEvents()
		return m, tick()
	}

	if m.state == stateRunning {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) drainEvents() {
	for {
		select {
		case ev := <-m.sess.Settles():
			m.settled = ev.Settled
		case err := <-m.sess.Errors():
			m.status = errorStyle.Render(err.Error())
		default:
			return
		}
	}
}

// runCommand parses one input-bar command and applies it to the running
// state machine.
func (m *interactiveModel) runCommand(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	var serr error
	switch fields[0] {
	case "bool":
		if len(fields) != 3 {
			return "usage: bool <name> true|false"
		}
		serr = orNil(m.sess.SetBoolInput(m.machine, fields[1], fields[2] == "true" || fields[2] == "1"))
	case "num":
		if len(fields) != 3 {
			return "usage: num <name> <value>"
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return "usage: num <name> <value>"
		}
		serr = orNil(m.sess.SetNumberInput(m.machine, fields[1], v))
	case "fire":
		if len(fields) != 2 {
			return "usage: fire <name>"
		}
		serr = orNil(m.sess.FireTrigger(m.machine, fields[1]))
	default:
		return fmt.Sprintf("unknown command %q", fields[0])
	}
	if serr != nil {
		return errorStyle.Render(serr.Error())
	}
	return "sent " + strings.Join(fields, " ")
}

func (m *interactiveModel) teardown() {
	if m.sess != nil {
		m.sess.Release("tui")
		m.sess = nil
	}
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.sess == nil {
		return "Loading scene..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Scene Bridge"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectArtboard:
		b.WriteString("Select an artboard:\n\n")
		m.renderList(&b, m.artboards)
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter open • q quit"))

	case stateSelectMachine:
		b.WriteString("Select a state machine:\n\n")
		m.renderList(&b, m.machines)
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter run • q quit"))

	case stateRunning:
		state := "running"
		if m.settled {
			state = settledStyle.Render("settled")
		}
		b.WriteString(fmt.Sprintf("frame %d • %s\n\n", m.frame, state))
		b.WriteString(m.input.View())
		b.WriteString("\n")
		if m.status != "" {
			b.WriteString(m.status)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter send • esc quit"))
	}

	return b.String()
}

func (m *interactiveModel) renderList(b *strings.Builder, items []string) {
	for i, name := range items {
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + name))
		} else {
			b.WriteString("  " + nameStyle.Render(name))
		}
		b.WriteString("\n")
	}
}

func runInteractive(filename string, cfg *config.Config) error {
	p := tea.NewProgram(newInteractiveModel(filename, cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
