// Package report aggregates recorded donations for the admin dashboard and
// the report command.
package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"nanas/models"
)

// MonthTotal is the sum of one calendar month's donations.
type MonthTotal struct {
	Month       time.Month      `json:"-"`
	MonthName   string          `json:"month_name"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Count       int             `json:"count"`
}

// MonthlyTotals groups the year's donations (UTC) by month. Months without
// donations are omitted; the rest are ordered January first.
func MonthlyTotals(ctx context.Context, db *gorm.DB, year int) ([]MonthTotal, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	var rows []models.Donation
	err := db.WithContext(ctx).
		Select("amount", "donation_date").
		Where("donation_date >= ? AND donation_date < ?", start, end).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query donations: %w", err)
	}

	byMonth := map[time.Month]*MonthTotal{}
	for _, d := range rows {
		m := d.DonationDate.UTC().Month()
		mt, ok := byMonth[m]
		if !ok {
			mt = &MonthTotal{Month: m, MonthName: m.String()[:3]}
			byMonth[m] = mt
		}
		mt.TotalAmount = mt.TotalAmount.Add(d.Amount)
		mt.Count++
	}
	out := make([]MonthTotal, 0, len(byMonth))
	for _, mt := range byMonth {
		out = append(out, *mt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

// Print writes a plain-text table of totals followed by the year total.
func Print(w io.Writer, year int, totals []MonthTotal) {
	fmt.Fprintf(w, "Donations for %d (UTC):\n", year)
	sum := decimal.Zero
	n := 0
	for _, mt := range totals {
		fmt.Fprintf(w, "  %s  records=%-5d total=%s\n", mt.MonthName, mt.Count, mt.TotalAmount.StringFixed(2))
		sum = sum.Add(mt.TotalAmount)
		n += mt.Count
	}
	fmt.Fprintf(w, "  year records=%d total=%s\n", n, sum.StringFixed(2))
}
