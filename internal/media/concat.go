package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const ffmpegCommand = "ffmpeg"

// segmentListName is the concat demuxer's input manifest, written next to
// the segments and removed after the run.
const segmentListName = "file_list.txt"

// commandRunner abstracts process execution for tests.
type commandRunner func(ctx context.Context, name string, args ...string) error

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// Concatenator produces one output file from an ordered list of input
// files, or fails.
type Concatenator interface {
	Concat(ctx context.Context, inputs []string, output string, ceiling time.Duration) error
}

// FFmpegConcatenator joins MPEG files with ffmpeg's concat demuxer,
// stream-copying the audio and capping the output duration at the given
// ceiling.
type FFmpegConcatenator struct {
	run commandRunner
}

// NewFFmpegConcatenator constructs a concatenator that shells out to the
// ffmpeg binary on PATH.
func NewFFmpegConcatenator() *FFmpegConcatenator {
	return &FFmpegConcatenator{run: defaultCommandRunner}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (f *FFmpegConcatenator) WithCommandRunner(r commandRunner) {
	if f != nil && r != nil {
		f.run = r
	}
}

// Concat implements Concatenator.
func (f *FFmpegConcatenator) Concat(ctx context.Context, inputs []string, output string, ceiling time.Duration) error {
	if len(inputs) == 0 {
		return errors.New("no input files")
	}

	listPath := filepath.Join(filepath.Dir(inputs[0]), segmentListName)
	var manifest strings.Builder
	for _, in := range inputs {
		// concat demuxer quoting: a literal ' inside a quoted path
		// becomes '\''.
		fmt.Fprintf(&manifest, "file '%s'\n", strings.ReplaceAll(in, "'", `'\''`))
	}
	if err := os.WriteFile(listPath, []byte(manifest.String()), 0o644); err != nil {
		return fmt.Errorf("write segment list: %w", err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-t", strconv.Itoa(int(ceiling.Seconds())),
		"-c", "copy",
		output,
	}
	if err := f.run(ctx, ffmpegCommand, args...); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w", err)
	}
	return nil
}
