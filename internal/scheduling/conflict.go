package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
)

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate rejects empty or inverted windows.
func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return apperr.Validation("start and end are required")
	}
	if !w.End.After(w.Start) {
		return apperr.Validation("end must be after start")
	}
	return nil
}

// Overlaps reports whether a and b share any instant. Touching windows do not overlap, so
// [10:00,14:00) and [14:00,16:00) are compatible. This one test covers a starting inside b,
// ending inside b, containing b and being contained by b.
func Overlaps(a, b Window) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Intersect returns the overlapping part of a and b. Callers check Overlaps first.
func Intersect(a, b Window) Window {
	out := a
	if b.Start.After(out.Start) {
		out.Start = b.Start
	}
	if b.End.Before(out.End) {
		out.End = b.End
	}
	return out
}

// DayWindow returns the calendar day containing t as [00:00, next 00:00) in t's location.
func DayWindow(t time.Time) Window {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// BlackoutWindow converts whole-day blackout dates to [StartDate 00:00, EndDate+1 00:00).
func BlackoutWindow(b models.BlackoutDate) Window {
	return Window{Start: DayWindow(b.StartDate).Start, End: DayWindow(b.EndDate).End}
}

// BookedShift is an existing assignment of the operator being checked.
type BookedShift struct {
	AssignmentID uuid.UUID
	ShiftID      uuid.UUID
	ShiftName    string
	EventID      uuid.UUID
	EventName    string
	Window       Window
}

// ShiftConflict is an existing assignment overlapping the proposed window.
type ShiftConflict struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	ShiftID      uuid.UUID `json:"shift_id"`
	ShiftName    string    `json:"shift_name"`
	EventID      uuid.UUID `json:"event_id"`
	EventName    string    `json:"event_name"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	OverlapStart time.Time `json:"overlap_start"`
	OverlapEnd   time.Time `json:"overlap_end"`
}

// BlackoutConflict is a blackout record overlapping the proposed window.
type BlackoutConflict struct {
	BlackoutID   uuid.UUID `json:"blackout_id"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	Reason       string    `json:"reason,omitempty"`
	OverlapStart time.Time `json:"overlap_start"`
	OverlapEnd   time.Time `json:"overlap_end"`
}

// ConflictReport is advisory. It never blocks an assignment.
type ConflictReport struct {
	HasConflict bool               `json:"has_conflict"`
	Shifts      []ShiftConflict    `json:"shift_conflicts"`
	Blackouts   []BlackoutConflict `json:"blackout_conflicts"`
}

// FindConflicts checks window against the operator's booked shifts and blackout dates.
// A shift whose ID equals excludeShiftID is skipped, so a shift being edited does not
// conflict with itself.
func FindConflicts(window Window, booked []BookedShift, blackouts []models.BlackoutDate, excludeShiftID *uuid.UUID) ConflictReport {
	report := ConflictReport{Shifts: []ShiftConflict{}, Blackouts: []BlackoutConflict{}}
	for _, s := range booked {
		if excludeShiftID != nil && s.ShiftID == *excludeShiftID {
			continue
		}
		if !Overlaps(window, s.Window) {
			continue
		}
		overlap := Intersect(window, s.Window)
		report.Shifts = append(report.Shifts, ShiftConflict{
			AssignmentID: s.AssignmentID,
			ShiftID:      s.ShiftID,
			ShiftName:    s.ShiftName,
			EventID:      s.EventID,
			EventName:    s.EventName,
			Start:        s.Window.Start,
			End:          s.Window.End,
			OverlapStart: overlap.Start,
			OverlapEnd:   overlap.End,
		})
	}
	for _, b := range blackouts {
		bw := BlackoutWindow(b)
		if !Overlaps(window, bw) {
			continue
		}
		overlap := Intersect(window, bw)
		report.Blackouts = append(report.Blackouts, BlackoutConflict{
			BlackoutID:   b.ID,
			StartDate:    b.StartDate,
			EndDate:      b.EndDate,
			Reason:       b.Reason,
			OverlapStart: overlap.Start,
			OverlapEnd:   overlap.End,
		})
	}
	report.HasConflict = len(report.Shifts) > 0 || len(report.Blackouts) > 0
	return report
}

// ConflictSource loads an operator's bookings near a window.
type ConflictSource interface {
	BookedShifts(ctx context.Context, tenantID, operatorID uuid.UUID, window Window) ([]BookedShift, error)
	BlackoutDates(ctx context.Context, tenantID, operatorID uuid.UUID, window Window) ([]models.BlackoutDate, error)
}

// ConflictChecker answers conflict queries against persisted bookings.
type ConflictChecker struct {
	source ConflictSource
}

// NewConflictChecker creates a conflict checker.
func NewConflictChecker(source ConflictSource) *ConflictChecker {
	return &ConflictChecker{source: source}
}

// Check loads the operator's bookings and reports every overlap with window.
func (c *ConflictChecker) Check(ctx context.Context, tenantID, operatorID uuid.UUID, window Window, excludeShiftID *uuid.UUID) (ConflictReport, error) {
	if err := window.Validate(); err != nil {
		return ConflictReport{}, err
	}
	booked, err := c.source.BookedShifts(ctx, tenantID, operatorID, window)
	if err != nil {
		return ConflictReport{}, fmt.Errorf("checking conflicts: %w", err)
	}
	blackouts, err := c.source.BlackoutDates(ctx, tenantID, operatorID, window)
	if err != nil {
		return ConflictReport{}, fmt.Errorf("checking conflicts: %w", err)
	}
	return FindConflicts(window, booked, blackouts, excludeShiftID), nil
}
