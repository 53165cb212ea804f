// Package session holds the current report selection and the rows derived
// for it. Loads are sequence numbered: only the result of the most recent
// selection is ever applied, however the responses interleave.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"evm-report/internal/evm"
	"evm-report/internal/model"
)

// Selection is what the user picked.
type Selection struct {
	ProjectID int
	Date      time.Time
}

// Ready reports whether both a project and a date are chosen.
func (s Selection) Ready() bool {
	return s.ProjectID > 0 && !s.Date.IsZero()
}

// Ticket identifies one load. It is handed back to Complete.
type Ticket struct {
	Seq       uint64
	Selection Selection
}

// State is a snapshot of the tracker.
type State struct {
	Selection Selection
	Report    evm.Report
	// Seq of the load that produced Report; 0 before the first success.
	Seq     uint64
	Loading bool
	Err     error
}

// Fetcher loads the raw records of a selection.
type Fetcher func(ctx context.Context, sel Selection) ([]model.RawPeriodRecord, error)

// Tracker owns the current selection and its derived report. It is safe for
// concurrent use.
type Tracker struct {
	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	state   State
	agg     *evm.Aggregator
	log     *zap.Logger
	wg      sync.WaitGroup
	onApply func(State)
}

// NewTracker returns an empty tracker. onApply, if set, is called with the
// new state after every applied result, outside the lock.
func NewTracker(agg *evm.Aggregator, log *zap.Logger, onApply func(State)) *Tracker {
	if agg == nil {
		agg = evm.NewAggregator(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{
		agg:     agg,
		log:     log,
		onApply: onApply,
		state:   State{Report: evm.Report{Totals: agg.Totals(nil)}},
	}
}

// Begin starts a load for sel. The previous in-flight load is cancelled and
// its result will be ignored. The returned context is cancelled when a newer
// load begins or the tracker closes.
func (t *Tracker) Begin(ctx context.Context, sel Selection) (context.Context, Ticket) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}
	t.seq++
	loadCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.state.Selection = sel
	t.state.Loading = true
	return loadCtx, Ticket{Seq: t.seq, Selection: sel}
}

// Complete applies the outcome of the load identified by tk. It returns
// false when tk is stale. On error the previous rows are kept and the
// error is recorded.
func (t *Tracker) Complete(tk Ticket, records []model.RawPeriodRecord, err error) bool {
	t.mu.Lock()
	if current := t.seq; tk.Seq != current {
		t.mu.Unlock()
		t.log.Debug("dropping stale result", zap.Uint64("seq", tk.Seq), zap.Uint64("current", current))
		return false
	}
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.state.Loading = false
	if err != nil {
		t.state.Err = err
		t.log.Error("report load failed, keeping previous rows",
			zap.Int("project", tk.Selection.ProjectID),
			zap.Uint64("seq", tk.Seq),
			zap.Error(err))
	} else {
		t.state.Err = nil
		t.state.Report = evm.Build(records, t.agg)
		t.state.Seq = tk.Seq
		t.log.Debug("report applied",
			zap.Int("project", tk.Selection.ProjectID),
			zap.Uint64("seq", tk.Seq),
			zap.Int("rows", len(t.state.Report.Rows)))
	}
	snapshot := t.state
	t.mu.Unlock()

	if t.onApply != nil {
		t.onApply(snapshot)
	}
	return true
}

// Load runs fetch for sel in a new goroutine under Begin/Complete. An
// incomplete selection supersedes any in-flight load but fetches nothing.
func (t *Tracker) Load(ctx context.Context, sel Selection, fetch Fetcher) Ticket {
	loadCtx, tk := t.Begin(ctx, sel)
	if !sel.Ready() {
		t.mu.Lock()
		if t.seq == tk.Seq {
			t.cancel()
			t.cancel = nil
			t.state.Loading = false
		}
		t.mu.Unlock()
		return tk
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		records, err := fetch(loadCtx, sel)
		t.Complete(tk, records, err)
	}()
	return tk
}

// State returns a snapshot of the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Loading reports whether a load is in flight.
func (t *Tracker) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Loading
}

// Close cancels any in-flight load and waits for Load goroutines to exit.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.mu.Unlock()
	t.wg.Wait()
}
