// Package progress reports long-running work at a bounded number of checkpoints.
package progress

// DefaultCheckpoints is the number of intermediate reports per run.
const DefaultCheckpoints = 100

// Func receives progress updates. current never exceeds total unless the
// caller underestimated total.
type Func func(current, total int)

// Nop ignores progress.
func Nop(current, total int) {}

// Ticker decides when a Func should be called so that a run of any length
// produces at most checkpoints+1 reports. Past the announced total, which
// includes an unknown total of 0, reports fall on doubling strides.
type Ticker struct {
	fn          Func
	total       int
	every       int
	last        int
	checkpoints int
	reports     int
	next        int
}

// NewTicker returns a ticker reporting to fn. A nil fn is allowed.
// checkpoints <= 0 selects DefaultCheckpoints.
func NewTicker(fn Func, total, checkpoints int) *Ticker {
	if fn == nil {
		fn = Nop
	}
	if checkpoints <= 0 {
		checkpoints = DefaultCheckpoints
	}
	if total < 0 {
		total = 0
	}
	return &Ticker{
		fn:          fn,
		total:       total,
		every:       total/checkpoints + 1,
		last:        -1,
		checkpoints: checkpoints,
		next:        total + 1,
	}
}

// Tick records that current items are done and reports on checkpoint boundaries.
func (t *Ticker) Tick(current int) {
	if t.reports >= t.checkpoints {
		return
	}
	if current <= t.total {
		if current%t.every == 0 {
			t.report(current)
		}
		return
	}
	if current >= t.next {
		t.report(current)
		t.next = current * 2
	}
}

// Done emits the final report.
func (t *Ticker) Done(current int) {
	t.report(current)
}

// Finish emits a final report marking the run complete, even when fewer
// items than announced were processed.
func (t *Ticker) Finish(current int) {
	if current < t.total {
		current = t.total
	}
	t.report(current)
}

func (t *Ticker) report(current int) {
	if current == t.last {
		return
	}
	t.last = current
	t.reports++
	total := t.total
	if current > total {
		total = current
	}
	t.fn(current, total)
}

// Every returns the number of items between two reports.
func (t *Ticker) Every() int {
	return t.every
}
