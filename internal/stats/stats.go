// Package stats derives chart-ready aggregates from expense query
// results. Aggregates are computed on demand and never persisted.
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"depenses/internal/models"
	"depenses/internal/repository"

	"github.com/shopspring/decimal"
)

// monthAbbr holds the localized month abbreviations used for the
// 12-month series labels.
var monthAbbr = [12]string{
	"janv.", "févr.", "mars", "avr.", "mai", "juin",
	"juil.", "août", "sept.", "oct.", "nov.", "déc.",
}

// Series is a pair of parallel label/value sequences consumed by the
// chart layer.
type Series struct {
	Labels []string
	Values []decimal.Decimal
}

// Engine folds repository query results into aggregates.
type Engine struct {
	repo *repository.Repository
	now  func() time.Time
}

// New creates an aggregation engine over repo.
func New(repo *repository.Repository) *Engine {
	return &Engine{repo: repo, now: time.Now}
}

// SumByCategory returns total spend per category within the period.
// Categories with no matching expenses are absent from the map.
func (e *Engine) SumByCategory(ctx context.Context, userID int64, period repository.Period) (map[string]decimal.Decimal, error) {
	expenses, err := e.repo.Query(ctx, userID, period, repository.AllCategories)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]decimal.Decimal)
	for _, x := range expenses {
		totals[x.Category] = totals[x.Category].Add(x.Amount)
	}
	return totals, nil
}

// SumByDay returns total spend per day within the period, labels
// formatted DD/MM in ascending date order.
func (e *Engine) SumByDay(ctx context.Context, userID int64, period repository.Period) (Series, error) {
	expenses, err := e.repo.Query(ctx, userID, period, repository.AllCategories)
	if err != nil {
		return Series{}, err
	}

	totals := make(map[string]decimal.Decimal)
	for _, x := range expenses {
		totals[x.Date] = totals[x.Date].Add(x.Amount)
	}

	dates := make([]string, 0, len(totals))
	for d := range totals {
		dates = append(dates, d)
	}
	sort.Strings(dates) // ISO dates sort chronologically

	series := Series{
		Labels: make([]string, 0, len(dates)),
		Values: make([]decimal.Decimal, 0, len(dates)),
	}
	for _, d := range dates {
		series.Labels = append(series.Labels, d[8:10]+"/"+d[5:7])
		series.Values = append(series.Values, totals[d])
	}
	return series, nil
}

// SumByMonth returns total spend per month over the trailing 12 calendar
// months ending with the current one. Every month is present, zero when
// empty, independent of any period selection.
func (e *Engine) SumByMonth(ctx context.Context, userID int64) (Series, error) {
	expenses, err := e.repo.Query(ctx, userID, repository.PeriodAll, repository.AllCategories)
	if err != nil {
		return Series{}, err
	}

	now := e.now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)

	series := Series{
		Labels: make([]string, 12),
		Values: make([]decimal.Decimal, 12),
	}
	index := make(map[string]int, 12)
	for i := range 12 {
		m := first.AddDate(0, i, 0)
		index[m.Format("2006-01")] = i
		series.Labels[i] = fmt.Sprintf("%s %02d", monthAbbr[m.Month()-1], m.Year()%100)
	}

	for _, x := range expenses {
		if len(x.Date) < 7 {
			continue
		}
		if i, ok := index[x.Date[:7]]; ok {
			series.Values[i] = series.Values[i].Add(x.Amount)
		}
	}
	return series, nil
}

// CategoryColors returns the chart color for each label of a category
// aggregate, with the documented fallback for unknown categories.
func CategoryColors(categories []string) []string {
	colors := make([]string, len(categories))
	for i, c := range categories {
		colors[i] = models.CategoryColor(c)
	}
	return colors
}
