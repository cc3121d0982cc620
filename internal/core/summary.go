package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryTotal is the amount aggregated for one catalogue entry.
type CategoryTotal struct {
	Category
	Total decimal.Decimal `json:"total"`
}

// Total sums every amount in records.
func Total(records []Expense) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range records {
		sum = sum.Add(e.Amount)
	}
	return sum
}

// ByCategory sums amounts per catalogue entry and orders the result by total,
// largest first. Ties keep catalogue order. Records whose category is not in
// the catalogue are left out.
func ByCategory(records []Expense, catalogue Catalogue) []CategoryTotal {
	totals := make([]CategoryTotal, len(catalogue))
	index := make(map[string]int, len(catalogue))
	for i, cat := range catalogue {
		totals[i] = CategoryTotal{Category: cat, Total: decimal.Zero}
		if _, dup := index[cat.Name]; !dup {
			index[cat.Name] = i
		}
	}
	for _, e := range records {
		if i, ok := index[e.Category]; ok {
			totals[i].Total = totals[i].Total.Add(e.Amount)
		}
	}
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Total.GreaterThan(totals[j].Total)
	})
	return totals
}

// PercentageOf returns part as a whole percentage of whole, rounded to the
// nearest integer. It is 0 when whole is 0.
func PercentageOf(part, whole decimal.Decimal) int {
	if whole.IsZero() {
		return 0
	}
	return int(part.Mul(decimal.NewFromInt(100)).Div(whole).Round(0).IntPart())
}

// CategoryShare is a CategoryTotal with its share of the overall total.
type CategoryShare struct {
	CategoryTotal
	Percent int `json:"percent"`
}

// PeriodTotal is the spending inside one window.
type PeriodTotal struct {
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// Summary is the dashboard view of a record set.
type Summary struct {
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
	// TopCategory is nil until some catalogue category has spending.
	TopCategory *CategoryShare `json:"top_category"`
	ThisMonth   PeriodTotal    `json:"this_month"`
	// Distribution only holds categories with spending.
	Distribution []CategoryShare `json:"by_category"`
}

// Summarize computes the dashboard figures for records relative to now.
func Summarize(records []Expense, catalogue Catalogue, now time.Time) Summary {
	total := Total(records)
	s := Summary{
		Total:        total,
		Count:        len(records),
		Distribution: []CategoryShare{},
	}

	for i, ct := range ByCategory(records, catalogue) {
		share := CategoryShare{CategoryTotal: ct, Percent: PercentageOf(ct.Total, total)}
		if i == 0 && ct.Total.IsPositive() {
			top := share
			s.TopCategory = &top
		}
		if ct.Total.IsPositive() {
			s.Distribution = append(s.Distribution, share)
		}
	}

	month := FilterByWindow(records, WindowMonth, now)
	s.ThisMonth = PeriodTotal{Total: Total(month), Count: len(month)}
	return s
}
