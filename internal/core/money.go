// Package core provides money parsing and handling utilities.
//
// This file contains the parsing of form-entered amounts and their display
// formatting.
//
// Importing core sets decimal.MarshalJSONWithoutQuotes for the whole process,
// so every decimal.Decimal encodes as a JSON number.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered decimal string to an amount rounded to
// cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up on the third decimal place. Signs, exponents and zero are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil
//	ParseAmount("0")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if s == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return NormalizeAmount(d)
}

// MaxAmount is the largest amount a single expense may carry.
var MaxAmount = decimal.NewFromInt(1_000_000_000)

// NormalizeAmount rounds d half-up to cents and checks it against the valid
// range (0, MaxAmount].
func NormalizeAmount(d decimal.Decimal) (decimal.Decimal, error) {
	if !amountInRange(d) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

func amountInRange(d decimal.Decimal) bool {
	return d.Round(2).IsPositive() && !d.GreaterThan(MaxAmount)
}

// FormatAmount renders d with exactly two decimals, e.g. "42.50".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
