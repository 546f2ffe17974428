// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing dollar amounts from strings
// and rendering cents as US currency.
package core

import (
	"errors"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is an amount in US cents.
type Money struct {
	Cents int64
}

var ErrInvalidAmount = errors.New("invalid amount")

var usPrinter = message.NewPrinter(language.AmericanEnglish)

// Dollars builds a Money from whole dollars.
func Dollars(d int64) Money {
	return Money{Cents: d * 100}
}

// ParseDollarsToCents converts a dollar string to cents with half-up rounding.
//
// A leading "$" and thousands separators are accepted. Negative values are
// rejected. Zero is allowed since a tax figure may legitimately be zero.
//
// Examples:
//
//	ParseDollarsToCents("4440") -> 444000, nil
//	ParseDollarsToCents("$5,904.50") -> 590450, nil
//	ParseDollarsToCents("12.345") -> 1235, nil
func ParseDollarsToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, ErrInvalidAmount
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if strings.Contains(fracPart, ".") {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}

	var frac int64
	for i := 0; i < len(fracPart) && i < 2; i++ {
		frac = frac*10 + int64(fracPart[i]-'0')
	}
	if len(fracPart) == 1 {
		frac *= 10
	}
	if len(fracPart) > 2 && fracPart[2] >= '5' {
		frac++
	}
	return iv*100 + frac, nil
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// Times scales the amount by n.
func (m Money) Times(n int64) Money { return Money{Cents: m.Cents * n} }

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.Cents == 0 }

// Dollars returns the amount as a float for display.
// Use Cents for arithmetic.
func (m Money) Dollars() float64 {
	return float64(m.Cents) / 100.0
}

// FormatUSD renders the amount as "$4,440", or "$4,440.50" when there are cents.
func (m Money) FormatUSD() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	if cents%100 == 0 {
		return sign + usPrinter.Sprintf("$%d", cents/100)
	}
	return sign + usPrinter.Sprintf("$%.2f", float64(cents)/100.0)
}

func (m Money) String() string { return m.FormatUSD() }
