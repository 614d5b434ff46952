package assignment

import (
	"fmt"
	"strings"
	"time"

	"github.com/householdpro/backend/internal/models"
)

// Window is a same-day time range in minutes after midnight, half-open [Start, End).
type Window struct {
	Start int
	End   int
}

func ParseClock(value string) (int, error) {
	t, err := time.Parse(models.ClockFormat, strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", value, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ParseWindow parses an HH:MM range. Ranges crossing midnight are rejected.
func ParseWindow(start, end string) (Window, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Window{}, err
	}
	if e <= s {
		return Window{}, fmt.Errorf("window %s-%s ends before it starts", start, end)
	}
	return Window{Start: s, End: e}, nil
}

// Overlaps reports whether two windows share any minute. Back-to-back windows do not.
func (w Window) Overlaps(o Window) bool {
	return w.Start < o.End && o.Start < w.End
}
