package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/zend-abi/abi"
	"github.com/wippyai/zend-abi/engine"
	"github.com/wippyai/zend-abi/zval"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
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

type interactiveModel struct {
	err      error
	engine   *engine.Engine
	cleanup  func()
	profile  *abi.Profile
	frame    string
	result   string
	funcs    []funcInfo
	input    textinput.Model
	selected int
	state    modelState
}

type funcInfo struct {
	name   string
	params string
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(p *abi.Profile) *interactiveModel {
	return &interactiveModel{
		profile: p,
		state:   stateSelectFunc,
	}
}

type loadedMsg struct {
	err     error
	engine  *engine.Engine
	cleanup func()
	funcs   []funcInfo
}

type callResultMsg struct {
	err    error
	frame  string
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadEngine
}

func (m *interactiveModel) loadEngine() tea.Msg {
	e, cleanup, err := newDemoEngine(m.profile)
	if err != nil {
		return loadedMsg{err: err}
	}

	var funcs []funcInfo
	for _, f := range demoFunctions(e) {
		funcs = append(funcs, funcInfo{name: f.name, params: f.params})
	}
	funcs = append(funcs,
		funcInfo{name: "wasm_add", params: "int, int"},
		funcInfo{name: "Counter", params: "int"},
	)
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].name < funcs[j].name })

	return loadedMsg{engine: e, cleanup: cleanup, funcs: funcs}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.close()
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				m.close()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.funcs) == 0 {
					return m, nil
				}
				m.prepareInput()
				m.state = stateInputArgs
				return m, textinput.Blink

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.reset()
			}

		case "esc":
			switch m.state {
			case stateInputArgs, stateShowResult:
				m.reset()
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.engine = msg.engine
		m.cleanup = msg.cleanup
		m.funcs = msg.funcs

	case callResultMsg:
		m.result = msg.result
		m.frame = msg.frame
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

func (m *interactiveModel) close() {
	if m.cleanup != nil {
		m.cleanup()
		m.cleanup = nil
	}
}

func (m *interactiveModel) reset() {
	m.state = stateSelectFunc
	m.result = ""
	m.frame = ""
	m.err = nil
}

func (m *interactiveModel) prepareInput() {
	f := m.funcs[m.selected]
	ti := textinput.New()
	ti.Placeholder = f.params
	ti.Prompt = "args: "
	ti.Width = 50
	ti.Focus()
	m.input = ti
}

func (m *interactiveModel) callFunction() tea.Msg {
	e := m.engine
	f := m.funcs[m.selected]

	args, err := parseArgs(e, m.input.Value())
	if err != nil {
		return callResultMsg{err: err}
	}

	callee, err := resolveCallee(e, f.name)
	if err != nil {
		releaseArgs(e, args)
		return callResultMsg{err: err}
	}

	var frameView string
	if !callee.IsObject() {
		if ex, err := e.EnterFunction(f.name, zval.Zval{}, args); err == nil {
			frameView = describeFrame(e, ex)
			e.Leave(ex)
		}
	}

	result, ok := callee.TryCall(args)
	if !ok {
		return callResultMsg{err: fmt.Errorf("%s is not callable", f.name), frame: frameView}
	}
	if exc := e.Exception(); exc != nil {
		e.ClearException()
		return callResultMsg{err: fmt.Errorf("exception: %w", exc), frame: frameView}
	}
	return callResultMsg{result: result.String(), frame: frameView}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if len(m.funcs) == 0 {
		return "Starting engine..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("zval inspector"))
	b.WriteString(" ")
	b.WriteString(m.profile.Name)
	b.WriteString(typeStyle.Render(fmt.Sprintf("  %d header slots", m.engineSlots())))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		for i, f := range m.funcs {
			line := m.formatFunc(f)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter choose • q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.name)))
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("comma-separated • enter call • esc back"))

	case stateShowResult:
		f := m.funcs[m.selected]
		if m.frame != "" {
			b.WriteString(typeStyle.Render(m.frame))
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.name)))
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

func (m *interactiveModel) engineSlots() uint32 {
	if m.engine == nil {
		return 0
	}
	return frameSlots(m.engine)
}

func (m *interactiveModel) formatFunc(f funcInfo) string {
	return funcStyle.Render(f.name) + "(" + typeStyle.Render(f.params) + ")"
}

func runInteractive(p *abi.Profile) error {
	m := newInteractiveModel(p)
	defer m.close()
	prog := tea.NewProgram(m, tea.WithAltScreen())
	_, err := prog.Run()
	return err
}
