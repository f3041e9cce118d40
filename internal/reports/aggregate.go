// Package reports groups fetched rows into revenue, utilization and pay summaries.
// All period arithmetic is done in UTC.
package reports

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/commandcentered/backend/internal/apperr"
	"github.com/commandcentered/backend/internal/models"
)

// GroupBy selects the revenue grouping key.
type GroupBy string

const (
	GroupMonth     GroupBy = "month"
	GroupWeek      GroupBy = "week"
	GroupDay       GroupBy = "day"
	GroupEventType GroupBy = "event_type"
	GroupStatus    GroupBy = "status"
)

func (g GroupBy) Valid() bool {
	switch g {
	case GroupMonth, GroupWeek, GroupDay, GroupEventType, GroupStatus:
		return true
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// PeriodKey formats t as a month (2006-01), ISO week (2006-W01) or day (2006-01-02) key.
func PeriodKey(t time.Time, g GroupBy) (string, error) {
	t = t.UTC()
	switch g {
	case GroupMonth:
		return t.Format("2006-01"), nil
	case GroupWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week), nil
	case GroupDay:
		return t.Format("2006-01-02"), nil
	}
	return "", apperr.Validation("%q is not a period grouping", g)
}

// RevenueRow is one group of the revenue report.
type RevenueRow struct {
	Key              string          `json:"key"`
	ProjectedRevenue decimal.Decimal `json:"projected_revenue"`
	ActualRevenue    decimal.Decimal `json:"actual_revenue"`
	Variance         decimal.Decimal `json:"variance"`
	EventCount       int             `json:"event_count"`
}

// RevenueReport is the grouped rows plus their totals.
type RevenueReport struct {
	GroupBy          GroupBy         `json:"group_by"`
	Rows             []RevenueRow    `json:"rows"`
	ProjectedRevenue decimal.Decimal `json:"projected_revenue"`
	ActualRevenue    decimal.Decimal `json:"actual_revenue"`
	Variance         decimal.Decimal `json:"variance"`
}

func revenueKey(e models.Event, g GroupBy) (string, error) {
	switch g {
	case GroupEventType:
		return string(e.EventType), nil
	case GroupStatus:
		return string(e.Status), nil
	}
	return PeriodKey(e.LoadInTime, g)
}

// GroupRevenue sums projected and actual revenue per key of the load-in time or category.
// Missing revenue counts as zero.
func GroupRevenue(events []models.Event, g GroupBy) (*RevenueReport, error) {
	if !g.Valid() {
		return nil, apperr.Validation("group_by must be one of month, week, day, event_type, status")
	}
	byKey := map[string]*RevenueRow{}
	report := &RevenueReport{GroupBy: g, Rows: []RevenueRow{}}
	for _, e := range events {
		key, err := revenueKey(e, g)
		if err != nil {
			return nil, err
		}
		row, ok := byKey[key]
		if !ok {
			row = &RevenueRow{Key: key}
			byKey[key] = row
		}
		row.ProjectedRevenue = row.ProjectedRevenue.Add(e.ProjectedRevenue.Decimal)
		row.ActualRevenue = row.ActualRevenue.Add(e.ActualRevenue.Decimal)
		row.EventCount++
	}
	for _, row := range byKey {
		row.Variance = row.ActualRevenue.Sub(row.ProjectedRevenue)
		report.Rows = append(report.Rows, *row)
		report.ProjectedRevenue = report.ProjectedRevenue.Add(row.ProjectedRevenue)
		report.ActualRevenue = report.ActualRevenue.Add(row.ActualRevenue)
	}
	sort.Slice(report.Rows, func(i, j int) bool { return report.Rows[i].Key < report.Rows[j].Key })
	report.Variance = report.ActualRevenue.Sub(report.ProjectedRevenue)
	return report, nil
}

// Window is an assignment's commitment period [Start, End).
type Window struct {
	GearID uuid.UUID
	Start  time.Time
	End    time.Time
}

// UtilizationRow is one gear item's share of days committed in the range.
type UtilizationRow struct {
	GearID             uuid.UUID           `json:"gear_id"`
	Name               string              `json:"name"`
	Category           models.GearCategory `json:"category"`
	DaysAssigned       int                 `json:"days_assigned"`
	TotalDays          int                 `json:"total_days"`
	UtilizationPercent decimal.Decimal     `json:"utilization_percent"`
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysInRange counts calendar days from from's day to to's day, both included.
func DaysInRange(from, to time.Time) int {
	n := int(day(to).Sub(day(from)).Hours()/24) + 1
	if n < 0 {
		return 0
	}
	return n
}

// GearUtilization reports, per item, the distinct calendar days in [from, to] touched by at least
// one of its windows.
func GearUtilization(gear []models.Gear, windows []Window, from, to time.Time) []UtilizationRow {
	first := day(from)
	end := day(to).AddDate(0, 0, 1)
	total := DaysInRange(from, to)

	busy := map[uuid.UUID]map[time.Time]struct{}{}
	for _, w := range windows {
		days := busy[w.GearID]
		if days == nil {
			days = map[time.Time]struct{}{}
			busy[w.GearID] = days
		}
		if !w.End.After(w.Start) {
			if d := day(w.Start); !d.Before(first) && d.Before(end) {
				days[d] = struct{}{}
			}
			continue
		}
		start := day(w.Start)
		if start.Before(first) {
			start = first
		}
		stop := w.End.UTC()
		if stop.After(end) {
			stop = end
		}
		for d := start; d.Before(stop); d = d.AddDate(0, 0, 1) {
			days[d] = struct{}{}
		}
	}

	rows := make([]UtilizationRow, 0, len(gear))
	for _, g := range gear {
		row := UtilizationRow{GearID: g.ID, Name: g.Name, Category: g.Category, DaysAssigned: len(busy[g.ID]), TotalDays: total}
		if total > 0 {
			row.UtilizationPercent = decimal.NewFromInt(int64(row.DaysAssigned)).Mul(hundred).
				Div(decimal.NewFromInt(int64(total))).Round(2)
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].UtilizationPercent.Equal(rows[j].UtilizationPercent) {
			return rows[i].UtilizationPercent.GreaterThan(rows[j].UtilizationPercent)
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

// OperatorPay is one operator's pay summary.
type OperatorPay struct {
	OperatorID   uuid.UUID       `json:"operator_id"`
	OperatorName string          `json:"operator_name"`
	ShiftCount   int             `json:"shift_count"`
	TotalHours   decimal.Decimal `json:"total_hours"`
	TotalPay     decimal.Decimal `json:"total_pay"`
}

// OperatorPayTotals sums calculated pay per operator. Hours prefer actual over estimated.
func OperatorPayTotals(assignments []models.ShiftAssignment) []OperatorPay {
	byOperator := map[uuid.UUID]*OperatorPay{}
	var order []uuid.UUID
	for _, a := range assignments {
		p, ok := byOperator[a.OperatorID]
		if !ok {
			p = &OperatorPay{OperatorID: a.OperatorID, OperatorName: a.OperatorName}
			byOperator[a.OperatorID] = p
			order = append(order, a.OperatorID)
		}
		p.ShiftCount++
		p.TotalPay = p.TotalPay.Add(a.CalculatedPay)
		switch {
		case a.ActualHours.Valid:
			p.TotalHours = p.TotalHours.Add(a.ActualHours.Decimal)
		case a.EstimatedHours.Valid:
			p.TotalHours = p.TotalHours.Add(a.EstimatedHours.Decimal)
		}
	}
	out := make([]OperatorPay, 0, len(order))
	for _, id := range order {
		out = append(out, *byOperator[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].TotalPay.Equal(out[j].TotalPay) {
			return out[i].TotalPay.GreaterThan(out[j].TotalPay)
		}
		return out[i].OperatorName < out[j].OperatorName
	})
	return out
}
