// Package tui is the live monitor: a full-screen view of the poll loop
// with a countdown to the next check.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Wyko/TMBRefugeChecker/internal/alert"
	"github.com/Wyko/TMBRefugeChecker/internal/availability"
	"github.com/Wyko/TMBRefugeChecker/internal/poll"
)

type App struct {
	loop     *poll.Loop
	queries  []availability.Query
	cacheLen func() int

	spinner spinner.Model
	width   int
	height  int

	cycle    *poll.Cycle
	nextAt   time.Time
	checking bool
	rang     bool
	done     bool
	err      error

	cancel context.CancelFunc
	cycles chan poll.Cycle
	result chan error
}

// NewApp builds the monitor. cacheLen reports how many availability
// snapshots are currently cached; nil hides the counter.
func NewApp(loop *poll.Loop, queries []availability.Query, cacheLen func() int) *App {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	return &App{
		loop:     loop,
		queries:  queries,
		cacheLen: cacheLen,
		spinner:  sp,
		checking: true,
		cycles:   make(chan poll.Cycle, 1),
		result:   make(chan error, 1),
	}
}

func (a *App) Init() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go func() {
		a.result <- a.loop.Run(ctx, a.queries, func(c poll.Cycle) {
			a.cycles <- c
		})
	}()

	return tea.Batch(a.spinner.Tick, a.waitForLoop(), tickCmd())
}

// waitForLoop blocks on the next event from the poll goroutine.
func (a *App) waitForLoop() tea.Cmd {
	return func() tea.Msg {
		select {
		case c := <-a.cycles:
			return cycleMsg(c)
		case err := <-a.result:
			return loopDoneMsg{err: err}
		}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			a.cancel()
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case cycleMsg:
		return a.applyCycle(poll.Cycle(msg)), a.waitForLoop()

	case loopDoneMsg:
		// The final cycle may still be queued behind the loop result.
		select {
		case c := <-a.cycles:
			a.applyCycle(c)
		default:
		}
		a.done = true
		a.err = msg.err
		return a, tea.Quit

	case tickMsg:
		if !a.done && !a.checking && !time.Now().Before(a.nextAt) {
			a.checking = true
		}
		return a, tickCmd()
	}

	return a, nil
}

func (a *App) applyCycle(c poll.Cycle) *App {
	a.cycle = &c
	a.checking = false
	if c.Wait > 0 {
		a.nextAt = time.Now().Add(c.Wait)
	}
	if c.Satisfied && !a.rang {
		a.rang = true
		fmt.Print("\a")
	}
	return a
}

func (a *App) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("tmb · refuge monitor"))
	b.WriteString("\n\n")

	if a.cycle == nil {
		b.WriteString(fmt.Sprintf(" %s first check under way\n", a.spinner.View()))
		return b.String()
	}

	width := 0
	for _, e := range a.cycle.Entries {
		if n := lipgloss.Width(e.Result.Refuge.Name); n > width {
			width = n
		}
	}

	var lastDate availability.Date
	for i, e := range a.cycle.Entries {
		if i == 0 || e.Query.Date != lastDate {
			lastDate = e.Query.Date
			b.WriteString(" ")
			b.WriteString(dateStyle.Render(e.Query.Date.Display()))
			b.WriteString("\n")
		}
		b.WriteString(a.renderEntry(e, width))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case a.done && a.err == nil:
		b.WriteString(successStyle.Render("Places available, go book them!"))
		b.WriteString("\n")
	case a.checking:
		b.WriteString(fmt.Sprintf(" %s checking...\n", a.spinner.View()))
	default:
		remaining := time.Until(a.nextAt).Round(time.Second)
		if remaining < 0 {
			remaining = 0
		}
		b.WriteString(dimStyle.Render(fmt.Sprintf("  next check in %s", remaining)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(a.statusBar())
	return b.String()
}

func (a *App) renderEntry(e poll.Entry, nameWidth int) string {
	name := e.Result.Refuge.Name
	if name == "" {
		name = fmt.Sprintf("refuge %d", e.Query.RefugeID)
	}
	pad := nameWidth - lipgloss.Width(name)
	if pad < 0 {
		pad = 0
	}
	padded := strings.Repeat(" ", pad) + name

	if e.Err != nil {
		return fmt.Sprintf("   %s  %s", padded, warnStyle.Render("check failed"))
	}

	text := alert.StatusText(e.Result)
	var style lipgloss.Style
	switch e.Result.Status() {
	case availability.StatusOpen:
		style = openStyle
	case availability.StatusFull:
		style = fullStyle
	default:
		style = closedStyle
	}
	return fmt.Sprintf("   %s  %s", padded, style.Render(text))
}

func (a *App) statusBar() string {
	left := ""
	if a.cycle != nil {
		left = fmt.Sprintf("cycle %d", a.cycle.Number)
	}
	if a.cacheLen != nil {
		if left != "" {
			left += " · "
		}
		left += fmt.Sprintf("%d cached", a.cacheLen())
	}
	right := "q quit"

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 0 {
		gap = 0
	}
	bar := left + fmt.Sprintf("%*s", gap, "") + right
	if a.width > 0 {
		return statusBarStyle.Width(a.width).Render(bar)
	}
	return statusBarStyle.Render(bar)
}

// Run drives the monitor until the plan is satisfied or the user quits.
func Run(loop *poll.Loop, queries []availability.Query, cacheLen func() int) error {
	p := tea.NewProgram(NewApp(loop, queries, cacheLen), tea.WithAltScreen())
	m, err := p.Run()
	if err != nil {
		return err
	}
	app := m.(*App)
	if app.err != nil && !errors.Is(app.err, context.Canceled) {
		return app.err
	}
	if app.done && app.err == nil {
		fmt.Println("Places available, go book them!")
	}
	return nil
}
