// Package media verifies downloaded audio and assembles it into one file
// per broadcast using ffmpeg.
package media

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tcolgate/mp3"
)

// Verifier reports whether an audio file decodes cleanly. A non-nil error
// means the file is suspect; callers decide what to do with it.
type Verifier interface {
	Verify(path string) error
}

// MP3Verifier walks every MPEG frame in the file and fails on the first
// frame that does not decode, or when no frame decodes at all.
type MP3Verifier struct{}

// Verify implements Verifier.
func (MP3Verifier) Verify(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	decoder := mp3.NewDecoder(f)
	var frame mp3.Frame
	var skipped int
	var frames int

	for {
		err := decoder.Decode(&frame, &skipped)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("frame %d: %w", frames+1, err)
		}
		frames++
	}

	if frames == 0 {
		return errors.New("no decodable MPEG frames")
	}
	return nil
}
