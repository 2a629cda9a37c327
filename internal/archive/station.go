package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// ErrStationCodeUnresolved means the listing page held no recognizable
// station code. The caller decides whether to prompt or fail.
var ErrStationCodeUnresolved = errors.New("station code could not be detected")

// AmbiguousStationCodeError reports that the listing page names several
// stations; the caller must pick one.
type AmbiguousStationCodeError struct {
	Candidates []string
}

func (e *AmbiguousStationCodeError) Error() string {
	return fmt.Sprintf("multiple station codes detected: %s", strings.Join(e.Candidates, ", "))
}

// listingHrefPattern matches the day-navigation links on the listing page;
// their anchor text is the station code.
var listingHrefPattern = regexp.MustCompile(`^index\.php\?d=\d+&m=\d+&y=\d+&c=\d+$`)

var tokenPattern = regexp.MustCompile(`^\w+$`)

// DiscoverStationCode fetches today's listing page and extracts the
// station code from it. Exactly one candidate resolves directly; several
// yield an AmbiguousStationCodeError; none falls back to the first
// data-table cell and then to ErrStationCodeUnresolved. The page is
// fetched once, with no retry.
func (c *Client) DiscoverStationCode(ctx context.Context, today time.Time) (string, error) {
	c.logger.Printf("scanning listing page for station codes")
	resp, err := c.get(ctx, ListingURL(c.baseURL, today), "")
	if err != nil {
		return "", fmt.Errorf("fetch listing page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("fetch listing page: unexpected status %d", resp.StatusCode)
	}

	return extractStationCode(resp.Body)
}

// extractStationCode scans an already-fetched listing document. Split out
// from the fetch so the extraction stays pure text processing.
func extractStationCode(r io.Reader) (string, error) {
	candidates, firstCell := scanListing(r)

	switch len(candidates) {
	case 0:
		if firstCell != "" && tokenPattern.MatchString(firstCell) {
			return firstCell, nil
		}
		return "", ErrStationCodeUnresolved
	case 1:
		return candidates[0], nil
	default:
		return "", &AmbiguousStationCodeError{Candidates: candidates}
	}
}

// scanListing walks the HTML once, collecting the text of every anchor
// whose href matches the day-navigation pattern (deduplicated, first-seen
// order) and the text of the first table cell as the fallback.
func scanListing(r io.Reader) (candidates []string, firstCell string) {
	seen := make(map[string]struct{})
	z := html.NewTokenizer(r)

	var inCandidateAnchor bool
	var anchorText strings.Builder
	var inFirstCell, firstCellDone bool
	var cellText strings.Builder

	for {
		switch z.Next() {
		case html.ErrorToken:
			return candidates, strings.TrimSpace(cellText.String())

		case html.StartTagToken:
			tok := z.Token()
			switch tok.Data {
			case "a":
				for _, attr := range tok.Attr {
					if attr.Key == "href" && listingHrefPattern.MatchString(attr.Val) {
						inCandidateAnchor = true
						anchorText.Reset()
						break
					}
				}
			case "td":
				if !firstCellDone {
					inFirstCell = true
				}
			}

		case html.EndTagToken:
			tok := z.Token()
			switch tok.Data {
			case "a":
				if inCandidateAnchor {
					inCandidateAnchor = false
					text := strings.TrimSpace(anchorText.String())
					if text != "" {
						if _, dup := seen[text]; !dup {
							seen[text] = struct{}{}
							candidates = append(candidates, text)
						}
					}
				}
			case "td":
				if inFirstCell {
					inFirstCell = false
					firstCellDone = true
				}
			}

		case html.TextToken:
			text := string(z.Text())
			if inCandidateAnchor {
				anchorText.WriteString(text)
			}
			if inFirstCell {
				cellText.WriteString(text)
			}
		}
	}
}
