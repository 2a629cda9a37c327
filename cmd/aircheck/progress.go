package main

import (
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// barReporter renders the pipeline's task events as a single progress bar
// whose label follows the task currently executing.
type barReporter struct {
	bar *mpb.Bar

	mu   sync.Mutex
	desc string
}

// newProgress builds the progress container and its task bar sized to the
// run's total task count.
func newProgress(total int) (*mpb.Progress, *barReporter) {
	progress := mpb.New(mpb.WithWidth(40))

	r := &barReporter{desc: "starting"}
	r.bar = progress.New(int64(total),
		mpb.BarStyle(),
		mpb.PrependDecorators(
			decor.Any(func(decor.Statistics) string { return r.description() }, decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("%d/%d"),
		),
	)
	return progress, r
}

func (r *barReporter) description() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.desc
}

// StartTask implements pipeline.Reporter.
func (r *barReporter) StartTask(desc string) {
	r.mu.Lock()
	r.desc = desc
	r.mu.Unlock()
}

// FinishTask implements pipeline.Reporter.
func (r *barReporter) FinishTask() {
	r.bar.Increment()
}

// Finish pins the final label and completes the bar even when tasks were
// skipped by cancellation.
func (r *barReporter) Finish(desc string) {
	r.StartTask(desc)
	r.bar.SetTotal(-1, true)
}
