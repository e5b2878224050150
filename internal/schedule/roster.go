package schedule

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wavepulse/wavepulse-go/internal/errors"
)

// Roster is the set of stations loaded for one ScheduleCycle.
type Roster struct {
	Stations []Station
	LoadedAt time.Time
	Skipped  int // malformed entries rejected during load
}

// rosterEntry mirrors one station descriptor in the roster file. The legacy
// WavePulse field names (radio_name, time) are accepted as aliases.
type rosterEntry struct {
	Name    string     `yaml:"name"`
	State   string     `yaml:"state"`
	URL     string     `yaml:"url"`
	Windows [][]string `yaml:"windows"`

	LegacyName    string     `yaml:"radio_name"`
	LegacyWindows [][]string `yaml:"time"`
}

// LoadRoster reads and validates the roster file. Malformed entries are
// skipped and logged individually; a roster with zero usable stations is an
// error, which the caller treats as fatal at startup.
func LoadRoster(path string, logger *slog.Logger) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "read-roster").
			Context("path", path).
			Build()
	}

	var entries []rosterEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "parse-roster").
			Context("path", path).
			Build()
	}

	roster := &Roster{LoadedAt: time.Now()}
	for i := range entries {
		station, err := entries[i].toStation()
		if err != nil {
			roster.Skipped++
			logger.Warn("skipping malformed roster entry",
				"index", i,
				"name", entries[i].displayName(),
				"error", err)
			continue
		}
		roster.Stations = append(roster.Stations, station)
	}

	if len(roster.Stations) == 0 {
		return nil, errors.Newf("roster %s contains no usable stations (%d rejected)", path, roster.Skipped).
			Category(errors.CategoryConfiguration).
			Context("path", path).
			Build()
	}

	return roster, nil
}

func (e *rosterEntry) displayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.LegacyName
}

// toStation validates and normalizes one roster entry.
func (e *rosterEntry) toStation() (Station, error) {
	name := e.Name
	if name == "" {
		name = e.LegacyName
	}
	if name == "" {
		return Station{}, fmt.Errorf("missing station name")
	}

	parsed, err := url.Parse(e.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return Station{}, fmt.Errorf("invalid stream url %q", e.URL)
	}

	rawWindows := e.Windows
	if len(rawWindows) == 0 {
		rawWindows = e.LegacyWindows
	}
	if len(rawWindows) == 0 {
		return Station{}, fmt.Errorf("no recording windows")
	}

	windows := make([]Window, 0, len(rawWindows))
	for _, pair := range rawWindows {
		if len(pair) != 2 {
			return Station{}, fmt.Errorf("window %v is not a [start,end] pair", pair)
		}
		start, err := ParseClock(pair[0])
		if err != nil {
			return Station{}, err
		}
		end, err := ParseClock(pair[1])
		if err != nil {
			return Station{}, err
		}
		if start == end {
			return Station{}, fmt.Errorf("window [%s,%s) is empty", start, end)
		}
		windows = append(windows, Window{Start: start, End: end})
	}

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].Start.MinuteOfDay() < windows[j].Start.MinuteOfDay()
	})
	if err := checkOverlap(windows); err != nil {
		return Station{}, err
	}

	return Station{
		Name:    name,
		State:   e.State,
		URL:     e.URL,
		Windows: windows,
	}, nil
}

// checkOverlap rejects overlapping windows. Wrapping windows are expanded
// into a same-day pair plus a wrapped pair before comparison.
func checkOverlap(windows []Window) error {
	type interval struct{ start, end int }
	var intervals []interval

	for _, w := range windows {
		start := w.Start.MinuteOfDay()
		end := w.End.MinuteOfDay()
		if w.CrossesMidnight() {
			intervals = append(intervals,
				interval{start, 24 * 60},
				interval{0, end})
		} else {
			intervals = append(intervals, interval{start, end})
		}
	}

	for i := range intervals {
		for j := i + 1; j < len(intervals); j++ {
			a, b := intervals[i], intervals[j]
			if a.start < b.end && b.start < a.end {
				return fmt.Errorf("windows overlap")
			}
		}
	}
	return nil
}

// processedEntry is the normalized form written out for cross-checking.
type processedEntry struct {
	Name    string     `yaml:"name"`
	State   string     `yaml:"state,omitempty"`
	URL     string     `yaml:"url"`
	Windows [][]string `yaml:"windows"`
}

// WriteProcessed dumps the normalized roster so operators can verify what
// the scheduler actually loaded.
func (r *Roster) WriteProcessed(path string) error {
	entries := make([]processedEntry, 0, len(r.Stations))
	for i := range r.Stations {
		st := &r.Stations[i]
		windows := make([][]string, 0, len(st.Windows))
		for _, w := range st.Windows {
			windows = append(windows, []string{w.Start.String(), w.End.String()})
		}
		entries = append(entries, processedEntry{
			Name:    st.Name,
			State:   st.State,
			URL:     st.URL,
			Windows: windows,
		})
	}

	data, err := yaml.Marshal(entries)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "marshal-processed-roster").
			Build()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "write-processed-roster").
			Context("path", path).
			Build()
	}
	return nil
}
