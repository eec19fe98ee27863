// Package engine plans and runs composed and optimized renders.
package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
)

// ItemError isolates the failure of one batch item.
type ItemError struct {
	Item string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Item, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// Report summarizes a batch run. Errors holds one *ItemError per failed
// item, in input order.
type Report struct {
	Total    int
	Rendered int
	Skipped  int
	Failed   int
	Errors   []error
}

// Err joins the item errors, nil when everything succeeded.
func (r *Report) Err() error {
	return errors.Join(r.Errors...)
}

// outcome is the per-item result collected by a batch worker.
type outcome int

const (
	outcomeRendered outcome = iota
	outcomeSkipped
	outcomeFailed
)

// tally accumulates outcomes from concurrent workers, keeping errors in
// input order.
type tally struct {
	mu     sync.Mutex
	report Report
	errs   []error
}

func newTally(total int) *tally {
	return &tally{
		report: Report{Total: total},
		errs:   make([]error, total),
	}
}

func (t *tally) record(i int, o outcome, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch o {
	case outcomeRendered:
		t.report.Rendered++
	case outcomeSkipped:
		t.report.Skipped++
	case outcomeFailed:
		t.report.Failed++
		t.errs[i] = err
	}
}

func (t *tally) finish() *Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, err := range t.errs {
		if err != nil {
			t.report.Errors = append(t.report.Errors, err)
		}
	}
	r := t.report
	return &r
}

// resolve makes p absolute against root unless it already is.
func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	if abs, err := filepath.Abs(filepath.Join(root, p)); err == nil {
		return abs
	}
	return filepath.Join(root, p)
}
