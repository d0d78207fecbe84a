package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/rover/pkg/sequence"
)

const (
	runChartWidth  = 60
	runChartHeight = 8
	runMaxLogs     = 5
)

var (
	chartStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	runningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	doneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	estimatedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	actualStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)

// runSequence executes (or replays) the engine's sequence behind a progress
// TUI. Ctrl-C cancels the run context; the engine stops the base before the
// run returns.
func runSequence(engine *sequence.Engine, replay bool) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resCh := make(chan error, 1)
	go func() {
		if replay {
			resCh <- engine.Replay(ctx)
		} else {
			resCh <- engine.Execute(ctx)
		}
	}()

	p := tea.NewProgram(newRunModel(engine, cancel))
	if _, err := p.Run(); err != nil {
		cancel()
		fmt.Println(errorStyle.Render(fmt.Sprintf("Error running progress view: %v", err)))
	}

	// The engine guarantees the base is stopped on every exit path, so the
	// result is safe to wait for.
	cancel()
	if err := <-resCh; err != nil {
		fmt.Println(errorStyle.Render(fmt.Sprintf("Run aborted: %v", err)))
		return
	}
	fmt.Println(successStyle.Render("Run complete."))
}

type runRow struct {
	movement sequence.Movement
	status   string // pending, running, done, failed
	budget   time.Duration
	elapsed  time.Duration
}

type runModel struct {
	engine *sequence.Engine
	cancel context.CancelFunc

	chart *streamlinechart.Model
	rows  []runRow
	logs  []string
	done  bool
}

// Messages from the engine
type runEventMsg sequence.Event
type runLogMsg string

func waitForEvent(engine *sequence.Engine) tea.Cmd {
	return func() tea.Msg {
		return runEventMsg(<-engine.Events())
	}
}

func waitForRunLog(engine *sequence.Engine) tea.Cmd {
	return func() tea.Msg {
		return runLogMsg(<-engine.Logs())
	}
}

func newRunModel(engine *sequence.Engine, cancel context.CancelFunc) runModel {
	movements := engine.Movements()
	rows := make([]runRow, len(movements))
	maxBudget := 1.0
	for i, m := range movements {
		d := m.Duration()
		rows[i] = runRow{
			movement: m,
			status:   "pending",
			budget:   time.Duration(d * float64(time.Second)),
		}
		if d > maxBudget {
			maxBudget = d
		}
	}

	chart := streamlinechart.New(runChartWidth, runChartHeight,
		streamlinechart.WithYRange(0, maxBudget*1.5),
	)
	chart.SetDataSetStyles("estimated", runes.ThinLineStyle, estimatedStyle)
	chart.SetDataSetStyles("actual", runes.ThinLineStyle, actualStyle)

	return runModel{
		engine: engine,
		cancel: cancel,
		chart:  &chart,
		rows:   rows,
	}
}

func (m *runModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > runMaxLogs {
		m.logs = m.logs[len(m.logs)-runMaxLogs:]
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.engine),
		waitForRunLog(m.engine),
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.done {
				return m, tea.Quit
			}
			// Cancel the run; the failure event quits the view once the
			// engine has stopped the base.
			m.cancel()
			m.addLog("Cancelling... waiting for the base to stop")
			return m, nil
		}

	case runEventMsg:
		ev := sequence.Event(msg)
		switch ev.Kind {
		case sequence.MovementStarted:
			if ev.Index >= 1 && ev.Index <= len(m.rows) {
				m.rows[ev.Index-1].status = "running"
			}
			m.chart.PushDataSet("estimated", ev.Budget.Seconds())
			m.chart.DrawAll()
		case sequence.MovementDone:
			if ev.Index >= 1 && ev.Index <= len(m.rows) {
				m.rows[ev.Index-1].status = "done"
				m.rows[ev.Index-1].elapsed = ev.Elapsed
			}
			m.chart.PushDataSet("actual", ev.Elapsed.Seconds())
			m.chart.DrawAll()
		case sequence.MovementFailed:
			if ev.Index >= 1 && ev.Index <= len(m.rows) {
				m.rows[ev.Index-1].status = "failed"
				m.rows[ev.Index-1].elapsed = ev.Elapsed
			}
			m.done = true
			return m, tea.Quit
		case sequence.RunFinished:
			m.done = true
			return m, tea.Quit
		}
		return m, waitForEvent(m.engine)

	case runLogMsg:
		m.addLog(string(msg))
		return m, waitForRunLog(m.engine)
	}

	return m, nil
}

func (m runModel) View() string {
	if m.done {
		return ""
	}

	var sb strings.Builder

	sb.WriteString(headerStyle.Render("Executing sequence"))
	sb.WriteString("\n\n")

	for i, row := range m.rows {
		var style lipgloss.Style
		marker := " "
		switch row.status {
		case "pending":
			style = pendingStyle
		case "running":
			style, marker = runningStyle, "▸"
		case "done":
			style, marker = doneStyle, "✓"
		case "failed":
			style, marker = failedStyle, "✗"
		}
		line := fmt.Sprintf("%s %2d. %-28s %6.2fs", marker, i+1, row.movement, row.budget.Seconds())
		if row.status == "done" {
			line += fmt.Sprintf("  (%.2fs actual)", row.elapsed.Seconds())
		}
		sb.WriteString(style.Render(line))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")
	sb.WriteString(estimatedStyle.Render("━━") + " estimated  " + actualStyle.Render("━━") + " actual seconds per movement\n\n")

	if len(m.logs) == 0 {
		sb.WriteString(statusStyle.Render("Press 'q' to cancel"))
	} else {
		sb.WriteString(statusStyle.Render(strings.Join(m.logs, "\n")))
	}
	sb.WriteString("\n")

	return sb.String()
}
