package shift

import (
	"fmt"
	"time"
)

// UnknownShift is reported when the current time falls outside every
// configured window. Counters are never reset into the unknown shift.
const UnknownShift = "UNKNOWN"

// Window is one recurring shift: [Start, End) in seconds since midnight.
// A window whose start is after its end wraps across midnight.
type Window struct {
	Name  string
	Start int
	End   int
}

func (w Window) contains(sec int) bool {
	if w.Start > w.End {
		return sec >= w.Start || sec < w.End
	}
	return sec >= w.Start && sec < w.End
}

// Schedule is the ordered shift table. The first matching window wins.
type Schedule struct {
	windows []Window
}

// NewSchedule parses "HH:MM:SS" window definitions. Any malformed entry is
// a configuration error and must be fatal at startup.
func NewSchedule(defs []WindowDef) (*Schedule, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("shift table is empty")
	}
	windows := make([]Window, 0, len(defs))
	seen := make(map[string]bool, len(defs))
	for i, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("shift %d: name is required", i)
		}
		if seen[def.Name] {
			return nil, fmt.Errorf("shift %d: duplicate name %q", i, def.Name)
		}
		seen[def.Name] = true

		start, err := parseClock(def.Start)
		if err != nil {
			return nil, fmt.Errorf("shift %q start: %w", def.Name, err)
		}
		end, err := parseClock(def.End)
		if err != nil {
			return nil, fmt.Errorf("shift %q end: %w", def.Name, err)
		}
		if start == end {
			return nil, fmt.Errorf("shift %q: start and end are equal", def.Name)
		}
		windows = append(windows, Window{Name: def.Name, Start: start, End: end})
	}
	return &Schedule{windows: windows}, nil
}

// WindowDef is the raw configuration form of a shift window.
type WindowDef struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Active maps a wall-clock instant to the shift name covering it, or
// UnknownShift when no window matches.
func (s *Schedule) Active(now time.Time) string {
	h, m, sec := now.Clock()
	daySec := h*3600 + m*60 + sec
	for _, w := range s.windows {
		if w.contains(daySec) {
			return w.Name
		}
	}
	return UnknownShift
}

func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04:05", v)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q (want HH:MM:SS)", v)
	}
	h, m, s := t.Clock()
	return h*3600 + m*60 + s, nil
}
