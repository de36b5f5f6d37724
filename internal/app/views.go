package app

import (
	"sort"
	"strings"
	"time"

	"hostiq/internal/domain"
)

type InspectionFilter struct {
	Status     string
	PropertyID string
	MinScore   *float64
	MaxScore   *float64
	Query      string // matched against property, unit and cleaner names
}

// FilterInspections keeps the inspections matching every set field.
// Score bounds drop unscored inspections.
func FilterInspections(in []domain.Inspection, f InspectionFilter) []domain.Inspection {
	status := strings.ToUpper(strings.TrimSpace(f.Status))
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]domain.Inspection, 0, len(in))
	for _, it := range in {
		if status != "" && it.Status != status {
			continue
		}
		if f.PropertyID != "" && it.PropertyID != f.PropertyID {
			continue
		}
		if f.MinScore != nil && (it.Score == nil || *it.Score < *f.MinScore) {
			continue
		}
		if f.MaxScore != nil && (it.Score == nil || *it.Score > *f.MaxScore) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(it.PropertyName+" "+it.UnitName+" "+it.CleanerName), q) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Sort orders for SortInspections.
const (
	SortNewest   = "newest"
	SortOldest   = "oldest"
	SortScore    = "score"     // highest first
	SortScoreAsc = "score_asc" // lowest first
)

// SortInspections sorts in place (stable). Missing scores and dates go last
// in every order.
func SortInspections(in []domain.Inspection, by string) {
	switch by {
	case SortScore, SortScoreAsc:
		asc := by == SortScoreAsc
		sort.SliceStable(in, func(i, j int) bool {
			a, b := in[i].Score, in[j].Score
			if a == nil || b == nil {
				return a != nil && b == nil
			}
			if asc {
				return *a < *b
			}
			return *a > *b
		})
	default:
		oldest := by == SortOldest
		sort.SliceStable(in, func(i, j int) bool {
			a, b := in[i].CreatedAt, in[j].CreatedAt
			if a == nil || b == nil {
				return a != nil && b == nil
			}
			if oldest {
				return a.Before(*b)
			}
			return a.After(*b)
		})
	}
}

// Windows for FilterAssignments.
const (
	WhenAll      = "all"
	WhenToday    = "today"
	WhenUpcoming = "upcoming"
	WhenPast     = "past"
)

// FilterAssignments buckets assignments relative to now's calendar day in
// now's location. Unscheduled assignments only show under "all".
func FilterAssignments(in []domain.Assignment, when string, now time.Time) []domain.Assignment {
	if when == "" || when == WhenAll {
		return append([]domain.Assignment(nil), in...)
	}
	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	out := make([]domain.Assignment, 0, len(in))
	for _, a := range in {
		if a.ScheduledFor == nil {
			continue
		}
		t := *a.ScheduledFor
		switch when {
		case WhenToday:
			if !t.Before(dayStart) && t.Before(dayEnd) {
				out = append(out, a)
			}
		case WhenUpcoming:
			if !t.Before(dayEnd) {
				out = append(out, a)
			}
		case WhenPast:
			if t.Before(dayStart) {
				out = append(out, a)
			}
		}
	}
	return out
}

// SortAssignments orders by scheduled time, soonest first, unscheduled last.
func SortAssignments(in []domain.Assignment) {
	sort.SliceStable(in, func(i, j int) bool {
		a, b := in[i].ScheduledFor, in[j].ScheduledFor
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.Before(*b)
	})
}

// SearchProperties matches q case-insensitively against name and address.
func SearchProperties(in []domain.Property, q string) []domain.Property {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return append([]domain.Property(nil), in...)
	}
	out := make([]domain.Property, 0, len(in))
	for _, p := range in {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Address), q) {
			out = append(out, p)
		}
	}
	return out
}
