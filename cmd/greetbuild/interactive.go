package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/woxQAQ/greetffi/internal/build"
	"github.com/woxQAQ/greetffi/pkg/abi"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	cancelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD166"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateConfirm modelState = iota
	stateSelectTarget
	stateBuilding
	stateDone
	stateCancelled
)

type buildModel struct {
	ctx      context.Context
	builder  *build.Builder
	targets  []build.Target
	selected int
	preset   bool
	spinner  spinner.Model
	state    modelState
	artifact *build.Artifact
	err      error
}

type buildResultMsg struct {
	artifact *build.Artifact
	err      error
}

func newBuildModel(ctx context.Context, builder *build.Builder, preset *build.Target) *buildModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	m := &buildModel{
		ctx:     ctx,
		builder: builder,
		targets: build.Targets(),
		spinner: s,
		state:   stateConfirm,
	}

	for i, t := range m.targets {
		switch {
		case preset != nil && t.Name == preset.Name:
			m.selected = i
			m.preset = true
		case preset == nil && t.Name == abi.CurrentPlatform().String():
			m.selected = i
		}
	}

	return m
}

func (m *buildModel) Init() tea.Cmd {
	return nil
}

func (m *buildModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.state = stateCancelled
			return m, tea.Quit
		}
		return m.handleKey(msg)

	case buildResultMsg:
		m.artifact = msg.artifact
		m.err = msg.err
		m.state = stateDone
		return m, tea.Quit

	case spinner.TickMsg:
		if m.state != stateBuilding {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *buildModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case stateConfirm:
		switch msg.String() {
		case "y", "Y", "enter":
			if m.preset {
				return m.startBuild()
			}
			m.state = stateSelectTarget
		case "n", "N", "q", "esc":
			m.state = stateCancelled
			return m, tea.Quit
		}

	case stateSelectTarget:
		switch msg.String() {
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.targets)-1 {
				m.selected++
			}
		case "enter":
			return m.startBuild()
		case "q", "esc":
			m.state = stateCancelled
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m *buildModel) startBuild() (tea.Model, tea.Cmd) {
	m.state = stateBuilding
	target := m.targets[m.selected]

	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		artifact, err := m.builder.Build(m.ctx, target)
		return buildResultMsg{artifact: artifact, err: err}
	})
}

func (m *buildModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("greetffi build"))
	b.WriteString("\n\n")

	switch m.state {
	case stateConfirm:
		b.WriteString("Do you want to proceed with the build process? ")
		b.WriteString(helpStyle.Render("(y/n)"))

	case stateSelectTarget:
		b.WriteString("Select the target platform for the Go shared library:\n\n")
		for i, t := range m.targets {
			line := fmt.Sprintf("%-22s %s", t.Label, t.Output)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter build • q quit"))

	case stateBuilding:
		t := m.targets[m.selected]
		b.WriteString(fmt.Sprintf("%s Compiling Go shared library for %s...", m.spinner.View(), t.Label))

	case stateDone:
		if m.err != nil {
			b.WriteString(renderFailure(m.err))
		} else {
			b.WriteString(renderSuccess(m.artifact))
		}

	case stateCancelled:
		b.WriteString(cancelStyle.Render("Build process canceled by the user."))
	}

	b.WriteString("\n")
	return b.String()
}

func renderSuccess(artifact *build.Artifact) string {
	var b strings.Builder
	b.WriteString(resultStyle.Render(fmt.Sprintf("Go build completed for %s in %s", artifact.Target.Label, artifact.Duration.Round(time.Millisecond))))
	b.WriteString("\n")
	b.WriteString(artifact.Path)
	b.WriteString("\n")
	if out := strings.TrimSpace(artifact.Output); out != "" {
		b.WriteString(helpStyle.Render(out))
		b.WriteString("\n")
	}
	return b.String()
}

func renderFailure(err error) string {
	var b strings.Builder
	b.WriteString(errorStyle.Render("Go build failed."))
	b.WriteString("\n")

	var buildErr *build.BuildError
	if !errors.As(err, &buildErr) {
		b.WriteString(err.Error())
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("Exit code: %d\n", buildErr.ExitCode))
	if out := strings.TrimSpace(buildErr.Stdout); out != "" {
		b.WriteString("Standard output:\n" + out + "\n")
	}
	if out := strings.TrimSpace(buildErr.Stderr); out != "" {
		b.WriteString("Standard error:\n" + out + "\n")
	}
	if hint := buildErr.Hint(); hint != "" {
		b.WriteString(errorStyle.Render("Error: " + hint))
		b.WriteString("\n")
	}
	return b.String()
}
