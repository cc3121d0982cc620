package core

import (
	"fmt"
	"strings"
	"time"
)

// Window names a date range relative to a reference instant.
type Window string

const (
	WindowAll   Window = "all"
	WindowToday Window = "today"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
)

// Windows lists the supported windows in display order.
func Windows() []Window {
	return []Window{WindowAll, WindowToday, WindowWeek, WindowMonth}
}

// ParseWindow maps a query value to a Window. The empty string means WindowAll.
func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.ToLower(strings.TrimSpace(s))); w {
	case "":
		return WindowAll, nil
	case WindowAll, WindowToday, WindowWeek, WindowMonth:
		return w, nil
	default:
		return WindowAll, fmt.Errorf("unknown window %q", s)
	}
}

// Contains reports whether the calendar date date falls inside w, evaluated in
// the location of now. Unparseable dates only fall inside WindowAll.
func (w Window) Contains(date string, now time.Time) bool {
	if w == WindowAll || w == "" {
		return true
	}
	d, err := ParseDate(date, now.Location())
	if err != nil {
		return false
	}
	y, m, day := now.Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, now.Location())

	switch w {
	case WindowToday:
		return d.Equal(today)
	case WindowWeek:
		// Weeks start on the most recent Sunday, today included.
		start := today.AddDate(0, 0, -int(today.Weekday()))
		return !d.Before(start)
	case WindowMonth:
		return d.Year() == y && d.Month() == m
	default:
		return false
	}
}

// FilterByWindow keeps the records dated inside w.
func FilterByWindow(records []Expense, w Window, now time.Time) []Expense {
	return filter(records, func(e Expense) bool { return w.Contains(e.Date, now) })
}

// FilterBySearch keeps the records whose description contains term, ignoring
// case. An empty term keeps everything.
func FilterBySearch(records []Expense, term string) []Expense {
	return filter(records, searchMatcher(term))
}

// FilterByCategory keeps the records in category. AllCategories and the empty
// string keep everything.
func FilterByCategory(records []Expense, category string) []Expense {
	return filter(records, categoryMatcher(category))
}

// Filter combines the list controls. A record is kept when it satisfies all
// three predicates.
type Filter struct {
	Search   string
	Category string
	Window   Window
}

// Apply returns the records of records that satisfy f, preserving order.
func (f Filter) Apply(records []Expense, now time.Time) []Expense {
	matchSearch := searchMatcher(f.Search)
	matchCategory := categoryMatcher(f.Category)
	return filter(records, func(e Expense) bool {
		return matchSearch(e) && matchCategory(e) && f.Window.Contains(e.Date, now)
	})
}

func searchMatcher(term string) func(Expense) bool {
	term = strings.ToLower(term)
	return func(e Expense) bool {
		return strings.Contains(strings.ToLower(e.Description), term)
	}
}

func categoryMatcher(category string) func(Expense) bool {
	return func(e Expense) bool {
		return category == "" || category == AllCategories || e.Category == category
	}
}

func filter(records []Expense, keep func(Expense) bool) []Expense {
	out := make([]Expense, 0, len(records))
	for _, e := range records {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
