// Package pipeline sequences the run: it builds the full task list up
// front and executes it one task at a time, isolating failures so a bad
// segment or broadcast never aborts the rest of the run.
package pipeline

import "aircheck/internal/models"

// BuildTasks expands occurrences into the run's complete ordered task
// list: every segment download for an occurrence, then its concat task.
// Building the list up front makes total progress known before execution
// starts.
func BuildTasks(occurrences []models.Occurrence, locate func(models.Occurrence) []models.SegmentRequest) []models.Task {
	var tasks []models.Task
	for _, occ := range occurrences {
		segs := locate(occ)
		for i, seg := range segs {
			tasks = append(tasks, models.Task{
				Kind:       models.TaskDownload,
				Occurrence: occ,
				Segment:    seg,
				Index:      i + 1,
				Total:      len(segs),
			})
		}
		tasks = append(tasks, models.Task{
			Kind:       models.TaskConcat,
			Occurrence: occ,
		})
	}
	return tasks
}
