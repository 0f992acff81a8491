// Package perf times the phases of a mining run and the reads feeding it.
package perf

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Phase names used by the command line.
const (
	PhaseCount    = "count"
	PhaseExtract  = "extract"
	PhaseVariants = "variants"
	PhaseRender   = "render"
)

// Profiler tracks phase timings and read throughput.
type Profiler struct {
	mu     sync.Mutex
	phases map[string]time.Duration
	order  []string

	bytesRead atomic.Int64
	readOps   atomic.Int64
	readWait  atomic.Int64 // nanoseconds
	records   atomic.Int64

	startTime time.Time
	now       func() time.Time
}

// New creates a profiler whose clock starts now.
func New() *Profiler {
	return &Profiler{
		phases:    make(map[string]time.Duration),
		startTime: time.Now(),
		now:       time.Now,
	}
}

// StartPhase begins timing a phase. The returned func stops it. A phase
// started more than once accumulates.
func (p *Profiler) StartPhase(name string) func() {
	start := p.now()
	return func() {
		d := p.now().Sub(start)
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.phases[name]; !ok {
			p.order = append(p.order, name)
		}
		p.phases[name] += d
	}
}

// RecordRead records a read operation.
func (p *Profiler) RecordRead(bytes int64, d time.Duration) {
	p.bytesRead.Add(bytes)
	p.readOps.Add(1)
	p.readWait.Add(int64(d))
}

// RecordRecords records extracted records.
func (p *Profiler) RecordRecords(n int64) {
	p.records.Add(n)
}

// Report holds profiling results.
type Report struct {
	TotalDuration time.Duration `json:"total_duration"`

	BytesRead      int64         `json:"bytes_read"`
	ReadOps        int64         `json:"read_ops"`
	ReadWaitTime   time.Duration `json:"read_wait_time"`
	ReadThroughput float64       `json:"read_throughput_bytes_sec"`
	Records        int64         `json:"records"`
	RecordsPerSec  float64       `json:"records_per_second"`

	HeapAlloc uint64 `json:"heap_alloc"`
	NumGC     uint32 `json:"num_gc"`

	Phases     []PhaseTiming `json:"phases"`
	Bottleneck Bottleneck    `json:"bottleneck"`
}

// PhaseTiming is the accumulated time of one phase.
type PhaseTiming struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
}

// Bottleneck names the phase that dominated the run.
type Bottleneck struct {
	Type        string  `json:"type"`
	Percentage  float64 `json:"percentage"`
	Description string  `json:"description"`
}

// Report summarizes what has been recorded so far.
func (p *Profiler) Report() *Report {
	total := p.now().Sub(p.startTime)
	r := &Report{
		TotalDuration: total,
		BytesRead:     p.bytesRead.Load(),
		ReadOps:       p.readOps.Load(),
		ReadWaitTime:  time.Duration(p.readWait.Load()),
		Records:       p.records.Load(),
	}

	p.mu.Lock()
	for _, name := range p.order {
		r.Phases = append(r.Phases, PhaseTiming{Name: name, Duration: p.phases[name]})
	}
	p.mu.Unlock()
	slices.SortStableFunc(r.Phases, func(a, b PhaseTiming) int {
		return cmp.Compare(b.Duration, a.Duration)
	})

	if total > 0 {
		r.ReadThroughput = float64(r.BytesRead) / total.Seconds()
		r.RecordsPerSec = float64(r.Records) / total.Seconds()
	}
	r.Bottleneck = identifyBottleneck(r)

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.HeapAlloc = m.HeapAlloc
	r.NumGC = m.NumGC
	return r
}

func identifyBottleneck(r *Report) Bottleneck {
	if r.TotalDuration <= 0 {
		return Bottleneck{Type: "balanced", Description: "Nothing recorded."}
	}
	pct := func(d time.Duration) float64 {
		return float64(d) / float64(r.TotalDuration) * 100
	}

	if readPct := pct(r.ReadWaitTime); readPct > 50 {
		return Bottleneck{
			Type:        "io_read",
			Percentage:  readPct,
			Description: "Reading the source dominates. Try a local or uncompressed copy.",
		}
	}
	for _, ph := range r.Phases {
		if p := pct(ph.Duration); p > 50 {
			return Bottleneck{
				Type:        ph.Name,
				Percentage:  p,
				Description: fmt.Sprintf("The %s phase dominates.", ph.Name),
			}
		}
	}
	return Bottleneck{Type: "balanced", Description: "No single phase dominates."}
}

// String formats the report for a terminal.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total time:   %v\n", r.TotalDuration.Round(time.Millisecond))
	fmt.Fprintf(&b, "Records:      %s (%s/sec)\n", humanize.Comma(r.Records), humanize.CommafWithDigits(r.RecordsPerSec, 0))
	fmt.Fprintf(&b, "Read:         %s in %d ops (%s/sec)\n", humanize.Bytes(uint64(r.BytesRead)), r.ReadOps, humanize.Bytes(uint64(r.ReadThroughput)))
	fmt.Fprintf(&b, "Read wait:    %v\n", r.ReadWaitTime.Round(time.Millisecond))
	fmt.Fprintf(&b, "Heap:         %s (%d GC)\n", humanize.Bytes(r.HeapAlloc), r.NumGC)
	for _, ph := range r.Phases {
		fmt.Fprintf(&b, "  %-12s %v\n", ph.Name+":", ph.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(&b, "Bottleneck:   %s\n  %s\n", r.Bottleneck.Type, r.Bottleneck.Description)
	return b.String()
}

// ProfiledReader wraps a reader to track I/O metrics.
type ProfiledReader struct {
	reader   io.Reader
	profiler *Profiler
}

// NewProfiledReader creates a profiled reader.
func NewProfiledReader(r io.Reader, p *Profiler) *ProfiledReader {
	return &ProfiledReader{reader: r, profiler: p}
}

// Read implements io.Reader with profiling.
func (r *ProfiledReader) Read(p []byte) (n int, err error) {
	start := time.Now()
	n, err = r.reader.Read(p)
	if n > 0 {
		r.profiler.RecordRead(int64(n), time.Since(start))
	}
	return
}

type profilerKey struct{}

// WithProfiler adds a profiler to context.
func WithProfiler(ctx context.Context, p *Profiler) context.Context {
	return context.WithValue(ctx, profilerKey{}, p)
}

// FromContext gets profiler from context.
func FromContext(ctx context.Context) *Profiler {
	if p, ok := ctx.Value(profilerKey{}).(*Profiler); ok {
		return p
	}
	return nil
}
