package tui

import (
	"time"

	"github.com/Wyko/TMBRefugeChecker/internal/poll"
)

type cycleMsg poll.Cycle

type loopDoneMsg struct {
	err error
}

type tickMsg time.Time
