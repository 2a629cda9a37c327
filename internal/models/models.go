package models

import "time"

// ScheduleRule describes one recurring broadcast window: every matching
// weekday between Start and End (inclusive), covering the listed hours.
// Rules are immutable after configuration is resolved.
type ScheduleRule struct {
	Start   time.Time
	End     time.Time
	Weekday time.Weekday
	// Hours lists the hour-of-day of each segment, in broadcast order.
	// Hour 0 denotes the midnight segment that spills into the next
	// calendar date.
	Hours []int
}

// Occurrence is one concrete broadcast instance: a date matching a rule,
// plus the rule's segment hours. Date carries no time-of-day component.
type Occurrence struct {
	Date  time.Time
	Hours []int
}

// ISODate returns the occurrence date in YYYY-MM-DD form. It names the
// temporary segment directory and the final output file.
func (o Occurrence) ISODate() string {
	return o.Date.Format("2006-01-02")
}

// SegmentRequest is the fully resolved descriptor for one hourly audio
// chunk: the filename it is stored under, the fetch URL, and the Referer
// the archive server requires before it will serve segment bytes.
type SegmentRequest struct {
	Filename string
	URL      string
	// EffectiveDate is the calendar date the archive files the segment
	// under. It equals the occurrence date, except for the midnight
	// segment which belongs to the following date.
	EffectiveDate time.Time
	// Referer reproduces the listing-page URL for the segment's
	// effective date and hour. The server rejects fetches without it.
	Referer string
}

// TaskKind discriminates the two task variants in a run's task list.
type TaskKind int

const (
	// TaskDownload fetches and verifies one segment.
	TaskDownload TaskKind = iota
	// TaskConcat assembles an occurrence's downloaded segments.
	TaskConcat
)

// Task is one unit of sequential work. Download tasks carry the segment
// request plus its 1-based position within the occurrence; concat tasks
// carry only the occurrence. For any occurrence all download tasks
// precede its concat task.
type Task struct {
	Kind       TaskKind
	Occurrence Occurrence
	Segment    SegmentRequest
	Index      int
	Total      int
}
