package archive

import (
	"fmt"
	"time"

	"aircheck/internal/models"
)

// The listing and fetch URLs are assembled by hand rather than through
// url.Values: the server is sensitive to query-parameter order, and
// url.Values encodes keys alphabetically.

// ListingURL builds the archive's listing-page URL for one date.
func ListingURL(baseURL string, date time.Time) string {
	return fmt.Sprintf("%s?c=0&d=%02d&m=%02d&y=%d",
		baseURL, date.Day(), int(date.Month()), date.Year())
}

// listingReferer is the listing URL scoped to one hour; it is the Referer
// the server expects on a segment fetch.
func listingReferer(baseURL string, date time.Time, hour int) string {
	return fmt.Sprintf("%s&p=%02d", ListingURL(baseURL, date), hour)
}

// EffectiveDate maps a broadcast hour onto the calendar date the archive
// files it under. The midnight segment of a show that starts the previous
// evening is stored on the following date.
func EffectiveDate(date time.Time, hour int) time.Time {
	if hour == 0 {
		return date.AddDate(0, 0, 1)
	}
	return date
}

// SegmentRequests derives the ordered request list for one occurrence.
// Pure: no I/O, no failure modes, and identical inputs produce identical
// output. One request is emitted per hour, in the occurrence's hour order.
func (c *Client) SegmentRequests(occ models.Occurrence) []models.SegmentRequest {
	reqs := make([]models.SegmentRequest, 0, len(occ.Hours))
	for _, hour := range occ.Hours {
		eff := EffectiveDate(occ.Date, hour)
		filename := SegmentFilename(c.stationCode, eff, hour)
		reqs = append(reqs, models.SegmentRequest{
			Filename:      filename,
			URL:           fmt.Sprintf("%s?f=%s&action=10", c.baseURL, filename),
			EffectiveDate: eff,
			Referer:       listingReferer(c.baseURL, eff, hour),
		})
	}
	return reqs
}

// SegmentFilename builds the archive's segment name for an effective date
// and hour: CODE-yy-mm-dd-HH-00.mp3. The fixed-width fields make
// lexicographic order agree with chronological order, which assembly
// relies on.
func SegmentFilename(stationCode string, effective time.Time, hour int) string {
	return fmt.Sprintf("%s-%s-%02d-00.mp3", stationCode, effective.Format("06-01-02"), hour)
}
