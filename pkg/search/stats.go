package search

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Outcome is the driver state.
type Outcome uint8

// Driver states. Idle moves to Searching on Run, and Searching ends in one
// of the three terminal states.
const (
	Idle Outcome = iota
	Searching
	SolutionFound
	Exhausted
	Aborted
)

var outcomeNames = [...]string{
	Idle:          "idle",
	Searching:     "searching",
	SolutionFound: "solution-found",
	Exhausted:     "exhausted",
	Aborted:       "aborted",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", uint8(o))
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(b []byte) error {
	for i, n := range outcomeNames {
		if n == string(b) {
			*o = Outcome(i)
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", b)
}

// Terminal reports whether the driver has stopped.
func (o Outcome) Terminal() bool { return o >= SolutionFound }

// Stats are the counters of one search run. They belong to the driver;
// the layered driver sums worker-local counts at each barrier.
type Stats struct {
	// Visited counts popped frontier entries.
	Visited uint64 `json:"visited"`

	// Expanded counts entries whose successors were generated.
	Expanded uint64 `json:"expanded"`

	// Generated counts successor joint states.
	Generated uint64 `json:"generated"`

	// Unviable counts successors that lost a rank.
	Unviable uint64 `json:"unviable"`

	// Cut counts successors discarded by a cutoff.
	Cut uint64 `json:"cut"`

	// Duplicate counts successors rejected by the visited store.
	Duplicate uint64 `json:"duplicate"`

	// Stale counts popped entries superseded by a shorter path.
	Stale uint64 `json:"stale"`

	// Bounded counts popped entries at the maximum length.
	Bounded uint64 `json:"bounded"`

	// Solutions counts emitted programs.
	Solutions uint64 `json:"solutions"`

	// Open is the current frontier size.
	Open int `json:"open"`

	// MaxOpen is the largest frontier size seen.
	MaxOpen int `json:"max_open"`

	// Length is the program length of the last popped entry.
	Length int `json:"length"`

	// Elapsed is the time since Run started.
	Elapsed time.Duration `json:"elapsed"`
}

// addWorker folds worker-local successor counts into s.
func (s *Stats) addWorker(w Stats) {
	s.Generated += w.Generated
	s.Unviable += w.Unviable
}

// setOpen records the frontier size.
func (s *Stats) setOpen(n int) {
	s.Open = n
	if n > s.MaxOpen {
		s.MaxOpen = n
	}
}

// Fields returns the counters as log fields.
func (s Stats) Fields() logrus.Fields {
	return logrus.Fields{
		"open":      s.Open,
		"visited":   s.Visited,
		"duplicate": s.Duplicate,
		"stale":     s.Stale,
		"cut":       s.Cut,
		"unviable":  s.Unviable,
		"bounded":   s.Bounded,
		"length":    s.Length,
		"elapsed":   s.Elapsed.Round(time.Millisecond),
	}
}

// Snapshot is a consistent view of a running driver.
type Snapshot struct {
	Outcome    Outcome `json:"outcome"`
	Layout     string  `json:"layout"`
	Strategy   string  `json:"strategy"`
	Heuristic  string  `json:"heuristic"`
	MaxLength  int     `json:"max_length"`
	BestLength int     `json:"best_length,omitempty"`
	Stats      Stats   `json:"stats"`
	StoreSize  uint64  `json:"store_size"`
}
