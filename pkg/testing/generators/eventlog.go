// Package generators writes synthetic event logs for tests, benchmarks and
// the generate command.
package generators

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"time"
)

// EventLogGenerator writes "case activity timestamp" lines. Case ids come in
// clusters of nearby values, and events of concurrently open cases are
// interleaved the way a real system log interleaves them.
type EventLogGenerator struct {
	rng *rand.Rand

	// Paths are the activity sequences cases follow, picked by Weights.
	Paths   [][]string
	Weights []int

	// BaseID is the first case id. Ids grow by 1 inside a cluster and jump
	// by ClusterGap between clusters.
	BaseID      int64
	ClusterSize int
	ClusterGap  int64

	// Open is how many cases are in flight at once.
	Open int

	// ErrorRate is the probability of writing a malformed line instead of
	// an event.
	ErrorRate float64

	StartTime time.Time
	Step      time.Duration
}

// DefaultPaths is a small order-to-cash process with a dominant path.
var DefaultPaths = [][]string{
	{"register", "check", "approve", "ship", "invoice", "close"},
	{"register", "check", "reject", "close"},
	{"register", "check", "approve", "ship", "return", "refund", "close"},
	{"register", "approve", "ship", "invoice", "close"},
}

// NewEventLogGenerator creates a generator with default settings.
func NewEventLogGenerator(seed int64) *EventLogGenerator {
	return &EventLogGenerator{
		rng:         rand.New(rand.NewSource(seed)),
		Paths:       DefaultPaths,
		Weights:     []int{70, 15, 10, 5},
		BaseID:      1,
		ClusterSize: 1000,
		ClusterGap:  250_000,
		Open:        8,
		StartTime:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Step:        time.Minute,
	}
}

// Stats describes what Generate wrote.
type Stats struct {
	Cases     int
	Events    int
	Malformed int
}

type openCase struct {
	id   int64
	path []string
	next int
}

// Generate writes the events of cases cases to w.
func (g *EventLogGenerator) Generate(w io.Writer, cases int) (Stats, error) {
	bw := bufio.NewWriter(w)
	var st Stats

	open := make([]*openCase, 0, g.Open)
	started := 0
	ts := g.StartTime

	for started < cases || len(open) > 0 {
		for len(open) < max(g.Open, 1) && started < cases {
			open = append(open, &openCase{id: g.caseID(started), path: g.pickPath()})
			started++
		}

		i := g.rng.Intn(len(open))
		c := open[i]

		if g.ErrorRate > 0 && g.rng.Float64() < g.ErrorRate {
			if _, err := fmt.Fprintf(bw, "%s\n", g.malformed(c)); err != nil {
				return st, err
			}
			st.Malformed++
		}

		if _, err := fmt.Fprintf(bw, "%d %s %s\n", c.id, c.path[c.next], ts.Format(time.RFC3339)); err != nil {
			return st, err
		}
		st.Events++
		ts = ts.Add(g.Step)

		c.next++
		if c.next == len(c.path) {
			open = append(open[:i], open[i+1:]...)
			st.Cases++
		}
	}

	return st, bw.Flush()
}

func (g *EventLogGenerator) caseID(n int) int64 {
	size := max(g.ClusterSize, 1)
	cluster := int64(n / size)
	return g.BaseID + cluster*g.ClusterGap + int64(n%size)
}

func (g *EventLogGenerator) pickPath() []string {
	total := 0
	for _, w := range g.Weights {
		total += w
	}
	if total == 0 || len(g.Weights) != len(g.Paths) {
		return g.Paths[g.rng.Intn(len(g.Paths))]
	}
	r := g.rng.Intn(total)
	for i, w := range g.Weights {
		if r < w {
			return g.Paths[i]
		}
		r -= w
	}
	return g.Paths[len(g.Paths)-1]
}

func (g *EventLogGenerator) malformed(c *openCase) string {
	switch g.rng.Intn(3) {
	case 0:
		return strconv.FormatInt(c.id, 10) + " " + c.path[c.next]
	case 1:
		return "case-" + strconv.FormatInt(c.id, 10) + " " + c.path[c.next] + " 0"
	default:
		return strconv.FormatInt(c.id, 10) + " " + c.path[c.next] + " 0 extra"
	}
}
