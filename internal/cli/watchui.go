package cli

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/condortrack/condortrack/internal/client"
)

// Theme holds the color scheme for the watch display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) finishedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// runEventMsg carries one event from the watch stream.
type runEventMsg client.RunEvent

// streamDoneMsg reports the end of the watch stream.
type streamDoneMsg struct {
	err error
}

// watchModel is the bubbletea model for the live run view.
type watchModel struct {
	run     *client.Run
	state   string
	metrics map[string]float64
	events  <-chan tea.Msg
	cancel  context.CancelFunc

	spinner  spinner.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

// newWatchModel creates a watch model fed by the given event channel.
func newWatchModel(run *client.Run, events <-chan tea.Msg, cancel context.CancelFunc) watchModel {
	return watchModel{
		run:     run,
		state:   run.State,
		metrics: map[string]float64{},
		events:  events,
		cancel:  cancel,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		theme:   defaultTheme,
	}
}

// Init starts the spinner and begins draining the event channel.
func (m watchModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForEvent(m.events),
	)
}

// Update handles messages and returns the updated model.
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case runEventMsg:
		switch msg.Type {
		case "state":
			m.state = msg.State
		case "metrics":
			for k, v := range msg.Metrics {
				m.metrics[k] = v
			}
		}
		return m, waitForEvent(m.events)

	case streamDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the watch display.
func (m watchModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m watchModel) renderContent() string {
	if m.done || m.quitting {
		return m.finalView()
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.state))
	line := fmt.Sprintf("%s run %s %s", m.spinner.View(), m.run.ID, status)
	if len(m.metrics) > 0 {
		line += "  " + formatMetrics(m.metrics)
	}
	hint := m.theme.hintStyle().Render("Press q to stop watching; the run keeps going")

	return fmt.Sprintf("%s\n%s\n", line, hint)
}

// finalView renders the closing message.
func (m watchModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render(
			fmt.Sprintf("\nStopped watching run %s.\nUse 'condortrack watch %s' to pick it up again.\n",
				m.run.ID, m.run.ID))
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Watch failed: %s\n", m.err))
	}

	out := m.theme.finishedStyle().Render("✓ Run finished") + "\n"
	if len(m.metrics) > 0 {
		out += "  " + formatMetrics(m.metrics) + "\n"
	}
	if m.run.URL != "" {
		out += m.theme.hintStyle().Render("  "+m.run.URL) + "\n"
	}
	return out
}

// waitForEvent returns a command that delivers the next stream message.
func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return streamDoneMsg{}
		}
		return msg
	}
}

// watchInteractive runs the live terminal view for a run, fed by the
// WebSocket watch stream.
func watchInteractive(c *client.Client, run *client.Run) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan tea.Msg)
	go func() {
		defer close(events)
		err := c.WatchRun(ctx, run.ID, func(event client.RunEvent) error {
			events <- runEventMsg(event)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			events <- streamDoneMsg{err: err}
		}
	}()

	model := newWatchModel(run, events, cancel)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("watch UI error: %w", err)
	}

	if m, ok := finalModel.(watchModel); ok {
		// Stopping the watch is not an error; the run continues server-side.
		if m.quitting {
			return nil
		}
		if m.err != nil {
			return m.err
		}
	}

	return nil
}
