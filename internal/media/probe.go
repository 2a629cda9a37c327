package media

import (
	"errors"
	"io"
	"math"
	"os"
	"strings"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"
)

// Info summarizes an audio file for status output.
type Info struct {
	SizeBytes       int64
	DurationSeconds float64
	BitrateKbps     int
	Title           string
	Artist          string
}

// Probe inspects an MP3 file. Tag and duration extraction are best-effort;
// only a missing file is an error.
func Probe(path string) (Info, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}

	info := Info{SizeBytes: stat.Size()}
	info.Title, info.Artist = readTags(path)

	if dur, err := mp3Duration(path); err == nil && dur > 0 {
		info.DurationSeconds = dur
		info.BitrateKbps = int(math.Round((float64(stat.Size()) * 8) / dur / 1000))
	}

	return info, nil
}

func readTags(path string) (title, artist string) {
	f, err := os.Open(path)
	if err != nil {
		return "", ""
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return "", ""
	}
	return strings.TrimSpace(meta.Title()), strings.TrimSpace(meta.Artist())
}

func mp3Duration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoder := mp3.NewDecoder(f)
	var frame mp3.Frame
	var skipped int
	var total float64

	for {
		err := decoder.Decode(&frame, &skipped)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
		total += frame.Duration().Seconds()
	}

	return total, nil
}
