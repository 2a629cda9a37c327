package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"aircheck/internal/archive"
	"aircheck/internal/media"
	"aircheck/internal/models"
)

// tmpDirName holds per-occurrence segment directories under the output
// directory.
const tmpDirName = "tmp"

// Archive is the slice of the authenticated session client the pipeline
// needs.
type Archive interface {
	PrimeListing(ctx context.Context, date time.Time) error
	FetchSegment(ctx context.Context, seg models.SegmentRequest) (archive.FetchResult, error)
}

// Reporter receives one event per task; rendering is the caller's
// concern. Implementations must be cheap, the pipeline calls them inline.
type Reporter interface {
	StartTask(description string)
	FinishTask()
}

// NopReporter discards all progress events.
type NopReporter struct{}

func (NopReporter) StartTask(string) {}
func (NopReporter) FinishTask()      {}

// Options carries the pipeline's fixed run parameters.
type Options struct {
	OutputDir     string
	PrimeTimeout  time.Duration
	FetchTimeout  time.Duration
	OutputCeiling time.Duration
	Reporter      Reporter
}

// Pipeline executes a run's task list against one authenticated session.
type Pipeline struct {
	archive  Archive
	verifier media.Verifier
	concat   media.Concatenator
	opts     Options
	logger   *log.Logger
}

// New assembles a pipeline from its collaborators.
func New(arc Archive, verifier media.Verifier, concat media.Concatenator, opts Options, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	if opts.Reporter == nil {
		opts.Reporter = NopReporter{}
	}
	return &Pipeline{
		archive:  arc,
		verifier: verifier,
		concat:   concat,
		opts:     opts,
		logger:   logger,
	}
}

// Run executes the tasks strictly in list order. Each task's failure is
// logged and the next task always proceeds; nothing here can abort the
// run.
func (p *Pipeline) Run(ctx context.Context, tasks []models.Task) {
	for _, task := range tasks {
		if ctx.Err() != nil {
			p.logger.Printf("run canceled: %v", ctx.Err())
			return
		}
		switch task.Kind {
		case models.TaskDownload:
			p.opts.Reporter.StartTask(fmt.Sprintf("downloading %s (segment %d/%d)",
				task.Segment.Filename, task.Index, task.Total))
			outcome := p.downloadSegment(ctx, task)
			switch outcome.Kind {
			case OutcomeSaved:
				p.logger.Printf("saved %s", task.Segment.Filename)
			case OutcomeSkipped:
				p.logger.Printf("skipped %s (%s)", task.Segment.Filename, outcome.Reason)
			case OutcomeFailed:
				p.logger.Printf("error on %s: %v", task.Segment.Filename, outcome.Err)
			}
		case models.TaskConcat:
			p.opts.Reporter.StartTask(fmt.Sprintf("assembling %s.mp3", task.Occurrence.ISODate()))
			output, err := p.assemble(ctx, task.Occurrence)
			switch {
			case err != nil:
				p.logger.Printf("error assembling %s: %v", task.Occurrence.ISODate(), err)
			case output == "":
				p.logger.Printf("no segments for %s, nothing to assemble", task.Occurrence.ISODate())
			default:
				p.logger.Printf("created %s%s", filepath.Base(output), describe(output))
			}
		}
		p.opts.Reporter.FinishTask()
	}
}

// OutcomeKind classifies a segment download attempt.
type OutcomeKind int

const (
	// OutcomeSaved means the segment bytes were persisted for assembly.
	OutcomeSaved OutcomeKind = iota
	// OutcomeSkipped means the server answered with something other than
	// audio; no file was written.
	OutcomeSkipped
	// OutcomeFailed means priming or transport failed for this segment.
	OutcomeFailed
)

// FetchOutcome is the per-segment result consumed by Run.
type FetchOutcome struct {
	Kind   OutcomeKind
	Path   string
	Reason string
	Err    error
}

// downloadSegment runs the prime-then-fetch sequence for one segment and
// classifies the result. Failed verification keeps the file: a suspect
// segment still preserves broadcast continuity, a missing one does not.
func (p *Pipeline) downloadSegment(ctx context.Context, task models.Task) FetchOutcome {
	seg := task.Segment

	primeCtx, cancelPrime := context.WithTimeout(ctx, p.opts.PrimeTimeout)
	defer cancelPrime()
	if err := p.archive.PrimeListing(primeCtx, seg.EffectiveDate); err != nil {
		return FetchOutcome{Kind: OutcomeFailed, Err: err}
	}

	fetchCtx, cancelFetch := context.WithTimeout(ctx, p.opts.FetchTimeout)
	defer cancelFetch()
	res, err := p.archive.FetchSegment(fetchCtx, seg)
	if err != nil {
		return FetchOutcome{Kind: OutcomeFailed, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != 200 || !strings.HasPrefix(res.ContentType, "audio") {
		_, _ = io.Copy(io.Discard, res.Body)
		return FetchOutcome{
			Kind:   OutcomeSkipped,
			Reason: strings.TrimSpace(fmt.Sprintf("%d %s", res.StatusCode, res.ContentType)),
		}
	}

	dir := p.occurrenceTmpDir(task.Occurrence)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return FetchOutcome{Kind: OutcomeFailed, Err: err}
	}

	dest := filepath.Join(dir, seg.Filename)
	if err := writeBody(dest, res.Body); err != nil {
		return FetchOutcome{Kind: OutcomeFailed, Err: err}
	}

	if err := p.verifier.Verify(dest); err != nil {
		p.logger.Printf("warning: %s may be corrupted (%v), keeping it for assembly", seg.Filename, err)
	}

	return FetchOutcome{Kind: OutcomeSaved, Path: dest}
}

// writeBody streams the response body to dest, removing the partial file
// when the copy fails mid-stream.
func writeBody(dest string, body io.Reader) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(dest)
		return err
	}
	return f.Close()
}

// assemble concatenates the occurrence's downloaded segments into the
// final output file. The returned path is empty when no segments exist.
// The temporary namespace is removed afterwards regardless of outcome.
func (p *Pipeline) assemble(ctx context.Context, occ models.Occurrence) (string, error) {
	dir := p.occurrenceTmpDir(occ)
	defer os.RemoveAll(dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".mp3") {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", nil
	}

	sortSegments(names)

	inputs := make([]string, len(names))
	for i, name := range names {
		inputs[i] = filepath.Join(dir, name)
	}

	output := filepath.Join(p.opts.OutputDir, occ.ISODate()+".mp3")
	if err := p.concat.Concat(ctx, inputs, output, p.opts.OutputCeiling); err != nil {
		return "", err
	}
	return output, nil
}

func (p *Pipeline) occurrenceTmpDir(occ models.Occurrence) string {
	return filepath.Join(p.opts.OutputDir, tmpDirName, occ.ISODate())
}

// describe renders a short parenthetical with the assembled file's
// duration and bitrate when they can be probed.
func describe(path string) string {
	info, err := media.Probe(path)
	if err != nil || info.DurationSeconds <= 0 {
		return ""
	}
	dur := time.Duration(info.DurationSeconds * float64(time.Second)).Round(time.Second)
	return fmt.Sprintf(" (%s, %d kbps)", dur, info.BitrateKbps)
}
