package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	comhost "github.com/hostware/comhost"
	"github.com/hostware/comhost/clsidmap"
	"github.com/hostware/comhost/shim"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive console: pick a class, activate, invoke methods",
	Args:  cobra.NoArgs,
	RunE:  runConsole,
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	classStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type consoleState int

const (
	stateSelectClass consoleState = iota
	stateSelectMethod
	stateInputArgs
	stateShowResult
)

type consoleModel struct {
	err       error
	shim      *shim.Shim
	shimPath  string
	entries   []clsidmap.Entry
	factory   comhost.ClassFactory
	object    comhost.Dispatch
	methods   []string
	input     textinput.Model
	result    string
	selClass  int
	selMethod int
	state     consoleState
}

func newConsoleModel(s *shim.Shim, shimPath string) *consoleModel {
	return &consoleModel{
		shim:     s,
		shimPath: shimPath,
		state:    stateSelectClass,
	}
}

type loadedMsg struct {
	err     error
	entries []clsidmap.Entry
}

type activatedMsg struct {
	err     error
	factory comhost.ClassFactory
	object  comhost.Dispatch
	methods []string
}

type callResultMsg struct {
	err    error
	result string
}

func (m *consoleModel) Init() tea.Cmd {
	return m.loadManifest
}

func (m *consoleModel) loadManifest() tea.Msg {
	manifest, err := m.shim.Manifest()
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{entries: manifest.Entries()}
}

func (m *consoleModel) activateClass() tea.Msg {
	ctx := context.Background()
	e := m.entries[m.selClass]

	factory, err := m.shim.GetClassObject(ctx, e.CLSID, comhost.IID_IClassFactory)
	if err != nil {
		return activatedMsg{err: err}
	}

	v, err := factory.CreateInstance(ctx, nil, comhost.IID_IDispatch)
	if err != nil {
		releaseUnknown(factory)
		return activatedMsg{err: err}
	}
	d, ok := v.(comhost.Dispatch)
	if !ok {
		releaseUnknown(v)
		releaseUnknown(factory)
		return activatedMsg{err: fmt.Errorf("class %s produced a %T, not a dispatch object", e.CLSID, v)}
	}

	return activatedMsg{factory: factory, object: d, methods: d.Methods()}
}

func (m *consoleModel) callMethod() tea.Msg {
	raw := strings.TrimSpace(m.input.Value())
	var args []any
	if raw != "" {
		for _, part := range strings.Split(raw, ",") {
			args = append(args, parseArg(strings.TrimSpace(part)))
		}
	}

	result, err := m.object.Invoke(context.Background(), m.methods[m.selMethod], args...)
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: fmt.Sprintf("%v", result)}
}

// leaveResult returns from the result screen to wherever makes sense:
// the method list when an object is live, the class list otherwise.
func (m *consoleModel) leaveResult() {
	m.result = ""
	m.err = nil
	if m.object != nil {
		m.state = stateSelectMethod
	} else {
		m.state = stateSelectClass
	}
}

func (m *consoleModel) releaseObject() {
	if m.object != nil {
		releaseUnknown(m.object)
		m.object = nil
	}
	if m.factory != nil {
		releaseUnknown(m.factory)
		m.factory = nil
	}
	m.methods = nil
	m.selMethod = 0
}

func (m *consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.releaseObject()
			return m, tea.Quit

		case "q":
			if m.state == stateInputArgs {
				break
			}
			m.releaseObject()
			return m, tea.Quit

		case "up", "k":
			switch m.state {
			case stateSelectClass:
				if m.selClass > 0 {
					m.selClass--
				}
			case stateSelectMethod:
				if m.selMethod > 0 {
					m.selMethod--
				}
			}

		case "down", "j":
			switch m.state {
			case stateSelectClass:
				if m.selClass < len(m.entries)-1 {
					m.selClass++
				}
			case stateSelectMethod:
				if m.selMethod < len(m.methods)-1 {
					m.selMethod++
				}
			}

		case "enter":
			switch m.state {
			case stateSelectClass:
				if len(m.entries) > 0 {
					return m, m.activateClass
				}

			case stateSelectMethod:
				if len(m.methods) > 0 {
					m.prepareInput()
					m.state = stateInputArgs
				}

			case stateInputArgs:
				return m, m.callMethod

			case stateShowResult:
				m.leaveResult()
			}

		case "esc":
			switch m.state {
			case stateSelectMethod:
				m.releaseObject()
				m.state = stateSelectClass
			case stateInputArgs:
				m.state = stateSelectMethod
			case stateShowResult:
				m.leaveResult()
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.entries = msg.entries

	case activatedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateShowResult
			return m, nil
		}
		m.factory = msg.factory
		m.object = msg.object
		m.methods = msg.methods
		m.selMethod = 0
		m.state = stateSelectMethod

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *consoleModel) prepareInput() {
	ti := textinput.New()
	ti.Placeholder = "args, comma-separated"
	ti.Prompt = m.methods[m.selMethod] + "("
	ti.Width = 40
	ti.Focus()
	m.input = ti
}

func (m *consoleModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("COM Console"))
	b.WriteString(" ")
	b.WriteString(m.shimPath)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectClass:
		if len(m.entries) == 0 {
			b.WriteString("Loading manifest...")
			break
		}
		b.WriteString("Select a class to activate:\n\n")
		for i, e := range m.entries {
			line := classStyle.Render(e.Type) + "  " + idStyle.Render(e.CLSID.String())
			if e.ProgID != "" {
				line += "  " + idStyle.Render(e.ProgID)
			}
			if i == m.selClass {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter activate • q quit"))

	case stateSelectMethod:
		e := m.entries[m.selClass]
		b.WriteString(fmt.Sprintf("Methods of %s:\n\n", classStyle.Render(e.Type)))
		for i, name := range m.methods {
			if i == m.selMethod {
				b.WriteString(selectedStyle.Render("> " + name))
			} else {
				b.WriteString("  " + name)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter invoke • esc release • q quit"))

	case stateInputArgs:
		b.WriteString(fmt.Sprintf("Calling %s\n\n", classStyle.Render(m.methods[m.selMethod])))
		b.WriteString(m.input.View())
		b.WriteString(" )\n\n")
		b.WriteString(helpStyle.Render("enter call • esc back"))

	case stateShowResult:
		target := m.entries[m.selClass].Type
		if m.object != nil && len(m.methods) > 0 {
			target = m.methods[m.selMethod]
		}
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", classStyle.Render(target)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func runConsole(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("console needs an interactive terminal")
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	s, _, err := newShim(cmd, false)
	if err != nil {
		return err
	}

	p := tea.NewProgram(newConsoleModel(s, cfg.Shim), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
