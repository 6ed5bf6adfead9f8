// Package alert renders availability results for the terminal and rings
// the bell when places open up.
package alert

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Wyko/TMBRefugeChecker/internal/availability"
	"github.com/Wyko/TMBRefugeChecker/internal/poll"
)

var (
	colorOpen    = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#25D366"}
	colorFull    = lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#FF5C5C"}
	colorClosed  = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"}
	colorWarn    = lipgloss.AdaptiveColor{Light: "#C97B0C", Dark: "#F5A623"}
	colorDate    = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	colorDim     = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"}

	openStyle    = lipgloss.NewStyle().Foreground(colorOpen).Bold(true)
	fullStyle    = lipgloss.NewStyle().Foreground(colorFull)
	closedStyle  = lipgloss.NewStyle().Foreground(colorClosed)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarn)
	dateStyle    = lipgloss.NewStyle().Foreground(colorDate).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(colorDim)
)

// Printer writes per-cycle reports. Styling can be disabled for plain
// output, and the bell suppressed for silent runs.
type Printer struct {
	out    io.Writer
	plain  bool
	silent bool
}

func NewPrinter(out io.Writer, plain, silent bool) *Printer {
	return &Printer{out: out, plain: plain, silent: silent}
}

// StatusText is the human label for a result line.
func StatusText(r availability.Result) string {
	switch r.Status() {
	case availability.StatusOpen:
		if r.Places == 1 {
			return "1 place"
		}
		return fmt.Sprintf("%d places", r.Places)
	case availability.StatusFull:
		return "full"
	case availability.StatusClosed:
		return "closed"
	case availability.StatusNotBookable:
		if r.Bookable {
			// The site offered the day but no count, or a probed booking
			// page looks open. Worth a manual look either way.
			return "booking open, places unknown"
		}
		return "not bookable online"
	default:
		return "unknown"
	}
}

func (p *Printer) styleFor(r availability.Result) lipgloss.Style {
	switch r.Status() {
	case availability.StatusOpen:
		return openStyle
	case availability.StatusFull:
		return fullStyle
	default:
		return closedStyle
	}
}

// FormatEntry renders one refuge line. Names are right-aligned within the
// widest name of the cycle so the status column lines up.
func (p *Printer) FormatEntry(e poll.Entry, nameWidth int) string {
	name := e.Result.Refuge.Name
	if name == "" {
		name = fmt.Sprintf("refuge %d", e.Query.RefugeID)
	}
	padded := fmt.Sprintf("%*s", nameWidth, name)

	if e.Err != nil {
		msg := "check failed"
		if p.plain {
			return fmt.Sprintf("  %s  %s", padded, msg)
		}
		return fmt.Sprintf("  %s  %s", padded, warnStyle.Render(msg))
	}

	text := StatusText(e.Result)
	if p.plain {
		return fmt.Sprintf("  %s  %s", padded, text)
	}
	return fmt.Sprintf("  %s  %s", padded, p.styleFor(e.Result).Render(text))
}

// PrintCycle writes a full cycle report grouped by date.
func (p *Printer) PrintCycle(c poll.Cycle) {
	width := 0
	for _, e := range c.Entries {
		name := e.Result.Refuge.Name
		if name == "" {
			name = fmt.Sprintf("refuge %d", e.Query.RefugeID)
		}
		if n := len([]rune(name)); n > width {
			width = n
		}
	}

	var b strings.Builder
	var lastDate availability.Date
	for i, e := range c.Entries {
		if i == 0 || e.Query.Date != lastDate {
			lastDate = e.Query.Date
			heading := e.Query.Date.Display()
			if !p.plain {
				heading = dateStyle.Render(heading)
			}
			b.WriteString(heading)
			b.WriteByte('\n')
		}
		b.WriteString(p.FormatEntry(e, width))
		b.WriteByte('\n')
	}

	if c.Satisfied {
		b.WriteString(p.note("places available, go book them"))
	} else if c.Wait > 0 {
		b.WriteString(p.note(fmt.Sprintf("checking again in %s", c.Wait.Round(time.Second))))
	}
	b.WriteByte('\n')

	fmt.Fprint(p.out, b.String())

	if c.Satisfied {
		p.Ring()
	}
}

func (p *Printer) note(s string) string {
	if p.plain {
		return s
	}
	return dimStyle.Render(s)
}

// Ring sounds the terminal bell unless the printer is silent.
func (p *Printer) Ring() {
	if p.silent {
		return
	}
	fmt.Fprint(p.out, "\a")
}
