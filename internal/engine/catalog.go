package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/examdesk/exam-scheduler-api/internal/models"
)

// CatalogDay groups the sessions of one exam date.
type CatalogDay struct {
	Date    time.Time              `json:"date"`
	Code    string                 `json:"code,omitempty"`
	Entries []models.ScheduleEntry `json:"entries"`
}

// Catalog returns the bookable sessions grouped by date, morning before
// afternoon. Zero bounds mean an unbounded range.
func (e *Engine) Catalog(ctx context.Context, from, to time.Time) ([]CatalogDay, error) {
	q := e.db.WithContext(ctx).Model(&models.ScheduleEntry{})
	if !from.IsZero() {
		q = q.Where("date >= ?", models.DateOnly(from))
	}
	if !to.IsZero() {
		q = q.Where("date <= ?", models.DateOnly(to))
	}

	var entries []models.ScheduleEntry
	if err := q.Order("date ASC, session DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list schedule entries: %w", err)
	}

	var days []CatalogDay
	for _, entry := range entries {
		if len(days) == 0 || !days[len(days)-1].Date.Equal(entry.Date) {
			days = append(days, CatalogDay{Date: entry.Date})
		}
		day := &days[len(days)-1]
		if entry.Code != nil && day.Code == "" {
			day.Code = *entry.Code
		}
		day.Entries = append(day.Entries, entry)
	}
	return days, nil
}
