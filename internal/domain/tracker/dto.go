package tracker

import (
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/pkg/calendar"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/validator"
)

// ========================================
// REQUESTS
// ========================================

// WindowRequest is the optional body of every report endpoint. Both bounds are ISO dates;
// when both are empty the caller's default window applies.
type WindowRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (r *WindowRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.From) != validator.IsEmpty(r.To) {
		errs = append(errs, validator.ValidationError{
			Field:   "from",
			Message: "from and to must be provided together",
		})
		return errs
	}
	if validator.IsEmpty(r.From) {
		return nil
	}

	from, okFrom := validator.IsValidDate(r.From)
	if !okFrom {
		errs = append(errs, validator.ValidationError{
			Field:   "from",
			Message: "from must be in YYYY-MM-DD format",
		})
	}
	to, okTo := validator.IsValidDate(r.To)
	if !okTo {
		errs = append(errs, validator.ValidationError{
			Field:   "to",
			Message: "to must be in YYYY-MM-DD format",
		})
	}
	if okFrom && okTo {
		if to.Before(from) {
			errs = append(errs, validator.ValidationError{
				Field:   "to",
				Message: "to must not be before from",
			})
		} else if to.Sub(from) > 366*24*time.Hour {
			errs = append(errs, validator.ValidationError{
				Field:   "to",
				Message: "window must not exceed one year",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Window returns the requested window, or fallback when the request is empty.
// Validate must have succeeded.
func (r *WindowRequest) Window(fallback func() DateWindow) DateWindow {
	if validator.IsEmpty(r.From) {
		return fallback()
	}
	from, _ := calendar.ParseISO(r.From)
	to, _ := calendar.ParseISO(r.To)
	return NewDateWindow(from, to)
}

// ========================================
// RESULTS
// ========================================

type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type AbsenceResult struct {
	DateRange               DateRange               `json:"date_range"`
	ContextRange            DateRange               `json:"context_range"`
	EntitiesWithoutActivity []EntityWithoutActivity `json:"entities_without_activity"`
	TotalCount              int                     `json:"total_count"`
	CheckedAt               time.Time               `json:"checked_at"`
}

type ChartResult struct {
	DateRange  DateRange           `json:"date_range"`
	Series     []EntityChartSeries `json:"series"`
	TotalCount int                 `json:"total_count"`
	CheckedAt  time.Time           `json:"checked_at"`
}

type ProjectChartResult struct {
	DateRange  DateRange            `json:"date_range"`
	Series     []ProjectChartSeries `json:"series"`
	TotalCount int                  `json:"total_count"`
	CheckedAt  time.Time            `json:"checked_at"`
}

type ListRunsResponse struct {
	Runs []CheckRun `json:"runs"`
	// Limit is the page size actually applied.
	Limit int `json:"-"`
}
