package domain

import "time"

// AuditStats are the derived statistics served by the per-resource aggregation
// endpoints: overall count, counts grouped by action and by status, and the
// earliest/latest persistence times.
type AuditStats struct {
	Total      int
	ByAction   map[Action]int
	ByStatus   map[Status]int
	FirstEvent time.Time
	LastEvent  time.Time
}

// BuildAuditStats derives statistics from an already-fetched record set. The
// aggregation endpoints return the full set anyway, so counting here keeps the
// numbers consistent with the records actually served.
func BuildAuditStats(logs []AuditLog) AuditStats {
	stats := AuditStats{
		Total:    len(logs),
		ByAction: make(map[Action]int),
		ByStatus: make(map[Status]int),
	}

	for _, l := range logs {
		stats.ByAction[l.Action]++
		stats.ByStatus[l.Status]++

		if stats.FirstEvent.IsZero() || l.CreatedAt.Before(stats.FirstEvent) {
			stats.FirstEvent = l.CreatedAt
		}
		if l.CreatedAt.After(stats.LastEvent) {
			stats.LastEvent = l.CreatedAt
		}
	}

	return stats
}
