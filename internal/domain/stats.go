package domain

import "time"

// TaskStats is an aggregate view over one owner's active (non-deleted) tasks.
// It is derived data: computed from the store, cached with a TTL, never
// authoritative.
type TaskStats struct {
	Total      int                  `json:"total"`
	ByStatus   map[TaskStatus]int   `json:"by_status"`
	ByPriority map[TaskPriority]int `json:"by_priority"`
	Overdue    int                  `json:"overdue"`
	Roots      int                  `json:"roots"`
	Subtasks   int                  `json:"subtasks"`
}

// ComputeStats aggregates the given tasks into a TaskStats. Soft-deleted
// tasks are skipped.
func ComputeStats(tasks []*Task, now time.Time) *TaskStats {
	stats := &TaskStats{
		ByStatus:   make(map[TaskStatus]int),
		ByPriority: make(map[TaskPriority]int),
	}
	for _, t := range tasks {
		if t.IsDeleted() {
			continue
		}
		stats.Total++
		stats.ByStatus[t.Status]++
		stats.ByPriority[t.Priority]++
		if t.IsOverdue(now) {
			stats.Overdue++
		}
		if t.IsRoot() {
			stats.Roots++
		} else {
			stats.Subtasks++
		}
	}
	return stats
}
