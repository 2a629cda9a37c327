package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aircheck/internal/archive"
	"aircheck/internal/models"
)

type fakeResponse struct {
	status      int
	contentType string
	body        string
}

type fakeArchive struct {
	primeErr  error
	fetchErr  error
	responses map[string]fakeResponse

	primed  []time.Time
	fetched []string
}

func (f *fakeArchive) PrimeListing(ctx context.Context, date time.Time) error {
	if f.primeErr != nil {
		return f.primeErr
	}
	f.primed = append(f.primed, date)
	return nil
}

func (f *fakeArchive) FetchSegment(ctx context.Context, seg models.SegmentRequest) (archive.FetchResult, error) {
	if f.fetchErr != nil {
		return archive.FetchResult{}, f.fetchErr
	}
	f.fetched = append(f.fetched, seg.Filename)

	res, ok := f.responses[seg.Filename]
	if !ok {
		res = fakeResponse{status: 404, contentType: "text/html", body: "<html>not found</html>"}
	}
	return archive.FetchResult{
		StatusCode:  res.status,
		ContentType: res.contentType,
		Body:        io.NopCloser(strings.NewReader(res.body)),
	}, nil
}

type fakeConcat struct {
	err    error
	inputs [][]string
	output string
}

func (f *fakeConcat) Concat(ctx context.Context, inputs []string, output string, ceiling time.Duration) error {
	f.inputs = append(f.inputs, append([]string(nil), inputs...))
	f.output = output
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(output, []byte("joined"), 0o644)
}

type fakeVerifier struct {
	err   error
	seen  []string
	calls int
}

func (f *fakeVerifier) Verify(path string) error {
	f.calls++
	f.seen = append(f.seen, filepath.Base(path))
	return f.err
}

func testOccurrence() models.Occurrence {
	return models.Occurrence{
		Date:  time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Hours: []int{22, 23, 0},
	}
}

func testRequests(occ models.Occurrence) []models.SegmentRequest {
	reqs := make([]models.SegmentRequest, 0, len(occ.Hours))
	for _, hour := range occ.Hours {
		eff := occ.Date
		if hour == 0 {
			eff = eff.AddDate(0, 0, 1)
		}
		name := fmt.Sprintf("BSR-%s-%02d-00.mp3", eff.Format("06-01-02"), hour)
		reqs = append(reqs, models.SegmentRequest{
			Filename:      name,
			URL:           "https://example.com/index.php?f=" + name + "&action=10",
			EffectiveDate: eff,
			Referer:       "https://example.com/index.php?c=0",
		})
	}
	return reqs
}

func newTestPipeline(t *testing.T, arc Archive, verifier *fakeVerifier, concat *fakeConcat) (*Pipeline, string) {
	t.Helper()
	outputDir := t.TempDir()
	p := New(arc, verifier, concat, Options{
		OutputDir:     outputDir,
		PrimeTimeout:  time.Second,
		FetchTimeout:  time.Second,
		OutputCeiling: 9000 * time.Second,
	}, log.New(io.Discard, "", 0))
	return p, outputDir
}

func TestRunDownloadsVerifiesAndAssembles(t *testing.T) {
	occ := testOccurrence()
	arc := &fakeArchive{responses: map[string]fakeResponse{}}
	for _, seg := range testRequests(occ) {
		arc.responses[seg.Filename] = fakeResponse{status: 200, contentType: "audio/mpeg", body: "bytes-" + seg.Filename}
	}
	verifier := &fakeVerifier{}
	concat := &fakeConcat{}
	p, outputDir := newTestPipeline(t, arc, verifier, concat)

	tasks := BuildTasks([]models.Occurrence{occ}, testRequests)
	if len(tasks) != 4 {
		t.Fatalf("expected 3 downloads + 1 concat, got %d tasks", len(tasks))
	}
	p.Run(context.Background(), tasks)

	if verifier.calls != 3 {
		t.Fatalf("expected 3 verifications, got %d", verifier.calls)
	}
	if len(concat.inputs) != 1 {
		t.Fatalf("expected one concat invocation, got %d", len(concat.inputs))
	}

	// Segment order fed to the concatenator is chronological: the two
	// evening hours first, the midnight spillover last.
	var names []string
	for _, in := range concat.inputs[0] {
		names = append(names, filepath.Base(in))
	}
	want := []string{
		"BSR-24-01-01-22-00.mp3",
		"BSR-24-01-01-23-00.mp3",
		"BSR-24-01-02-00-00.mp3",
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("concat input order %v, want %v", names, want)
		}
	}

	if concat.output != filepath.Join(outputDir, "2024-01-01.mp3") {
		t.Fatalf("unexpected output path %q", concat.output)
	}
	if _, err := os.Stat(concat.output); err != nil {
		t.Fatalf("expected assembled output file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outputDir, "tmp", "2024-01-01")); !os.IsNotExist(err) {
		t.Fatalf("temporary namespace should be removed, stat err=%v", err)
	}

	// Priming happened once per segment, against the effective date.
	if len(arc.primed) != 3 {
		t.Fatalf("expected 3 priming requests, got %d", len(arc.primed))
	}
	if !arc.primed[2].Equal(occ.Date.AddDate(0, 0, 1)) {
		t.Fatalf("midnight segment must prime the following date, primed %s", arc.primed[2])
	}
}

func TestRunSkipsNonAudioResponses(t *testing.T) {
	occ := testOccurrence()
	reqs := testRequests(occ)

	arc := &fakeArchive{responses: map[string]fakeResponse{
		reqs[0].Filename: {status: 200, contentType: "audio/mpeg", body: "bytes"},
		// A 200 with an HTML body is the archive's "not available" page.
		reqs[1].Filename: {status: 200, contentType: "text/html", body: "<html>no file</html>"},
		reqs[2].Filename: {status: 200, contentType: "audio/mpeg", body: "bytes"},
	}}
	verifier := &fakeVerifier{}
	concat := &fakeConcat{}
	p, _ := newTestPipeline(t, arc, verifier, concat)

	p.Run(context.Background(), BuildTasks([]models.Occurrence{occ}, testRequests))

	if len(concat.inputs) != 1 {
		t.Fatalf("expected one concat invocation, got %d", len(concat.inputs))
	}
	for _, in := range concat.inputs[0] {
		if filepath.Base(in) == reqs[1].Filename {
			t.Fatalf("skipped segment %s must not reach assembly", reqs[1].Filename)
		}
	}
	if len(concat.inputs[0]) != 2 {
		t.Fatalf("expected 2 assembled segments, got %d", len(concat.inputs[0]))
	}
	if verifier.calls != 2 {
		t.Fatalf("skipped segment must not be verified, got %d calls", verifier.calls)
	}
}

func TestRunProducesNothingWithoutSegments(t *testing.T) {
	occ := testOccurrence()
	arc := &fakeArchive{} // every fetch answers 404 text/html
	verifier := &fakeVerifier{}
	concat := &fakeConcat{}
	p, outputDir := newTestPipeline(t, arc, verifier, concat)

	p.Run(context.Background(), BuildTasks([]models.Occurrence{occ}, testRequests))

	if len(concat.inputs) != 0 {
		t.Fatalf("concatenator must not run without segments")
	}
	if _, err := os.Stat(filepath.Join(outputDir, "2024-01-01.mp3")); !os.IsNotExist(err) {
		t.Fatalf("no output file may exist, stat err=%v", err)
	}
}

func TestRunIsolatesPrimingFailures(t *testing.T) {
	occ := testOccurrence()
	arc := &fakeArchive{primeErr: errors.New("listing page down")}
	verifier := &fakeVerifier{}
	concat := &fakeConcat{}
	p, outputDir := newTestPipeline(t, arc, verifier, concat)

	p.Run(context.Background(), BuildTasks([]models.Occurrence{occ}, testRequests))

	if len(arc.fetched) != 0 {
		t.Fatalf("failed priming must prevent the segment fetch, fetched %v", arc.fetched)
	}
	if verifier.calls != 0 {
		t.Fatalf("nothing should be verified")
	}
	if _, err := os.Stat(filepath.Join(outputDir, "2024-01-01.mp3")); !os.IsNotExist(err) {
		t.Fatalf("no output file may exist, stat err=%v", err)
	}
}

func TestRunCleansTmpEvenWhenAssemblyFails(t *testing.T) {
	occ := testOccurrence()
	arc := &fakeArchive{responses: map[string]fakeResponse{}}
	for _, seg := range testRequests(occ) {
		arc.responses[seg.Filename] = fakeResponse{status: 200, contentType: "audio/mpeg", body: "bytes"}
	}
	verifier := &fakeVerifier{}
	concat := &fakeConcat{err: errors.New("ffmpeg exploded")}
	p, outputDir := newTestPipeline(t, arc, verifier, concat)

	p.Run(context.Background(), BuildTasks([]models.Occurrence{occ}, testRequests))

	if _, err := os.Stat(filepath.Join(outputDir, "tmp", "2024-01-01")); !os.IsNotExist(err) {
		t.Fatalf("temporary namespace must be removed after failed assembly, stat err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(outputDir, "2024-01-01.mp3")); !os.IsNotExist(err) {
		t.Fatalf("failed assembly must not leave an output file, stat err=%v", err)
	}
}

func TestRunKeepsSegmentsThatFailVerification(t *testing.T) {
	occ := testOccurrence()
	arc := &fakeArchive{responses: map[string]fakeResponse{}}
	for _, seg := range testRequests(occ) {
		arc.responses[seg.Filename] = fakeResponse{status: 200, contentType: "audio/mpeg", body: "bytes"}
	}
	verifier := &fakeVerifier{err: errors.New("frame 1: bad sync")}
	concat := &fakeConcat{}
	p, _ := newTestPipeline(t, arc, verifier, concat)

	p.Run(context.Background(), BuildTasks([]models.Occurrence{occ}, testRequests))

	if len(concat.inputs) != 1 || len(concat.inputs[0]) != 3 {
		t.Fatalf("segments failing verification must still be assembled, got %v", concat.inputs)
	}
}

func TestRunContinuesAfterTransportFailures(t *testing.T) {
	first := testOccurrence()
	second := models.Occurrence{Date: first.Date.AddDate(0, 0, 7), Hours: first.Hours}

	arc := &fakeArchive{fetchErr: errors.New("connection reset")}
	verifier := &fakeVerifier{}
	concat := &fakeConcat{}
	p, _ := newTestPipeline(t, arc, verifier, concat)

	tasks := BuildTasks([]models.Occurrence{first, second}, testRequests)
	p.Run(context.Background(), tasks)

	// All six download tasks were attempted despite every one failing.
	if len(arc.primed) != 6 {
		t.Fatalf("expected 6 priming attempts across both occurrences, got %d", len(arc.primed))
	}
}

func TestBuildTasksOrdering(t *testing.T) {
	first := testOccurrence()
	second := models.Occurrence{Date: first.Date.AddDate(0, 0, 7), Hours: first.Hours}

	tasks := BuildTasks([]models.Occurrence{first, second}, testRequests)
	if len(tasks) != 8 {
		t.Fatalf("expected 8 tasks, got %d", len(tasks))
	}

	// Downloads for an occurrence all precede its concat task.
	for i, task := range tasks {
		if task.Kind != models.TaskConcat {
			continue
		}
		for j := 0; j < i; j++ {
			if tasks[j].Occurrence.Date.Equal(task.Occurrence.Date) && tasks[j].Kind != models.TaskDownload {
				t.Fatalf("task %d: duplicate concat for %s", i, task.Occurrence.ISODate())
			}
		}
	}
	if tasks[3].Kind != models.TaskConcat || tasks[7].Kind != models.TaskConcat {
		t.Fatalf("concat tasks must close each occurrence's block")
	}
	if tasks[0].Index != 1 || tasks[0].Total != 3 || tasks[2].Index != 3 {
		t.Fatalf("download tasks must carry 1-based segment positions")
	}
}
