package core

import "testing"

func TestParseDollarsToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"4440", 444000, true},
		{"$5,904", 590400, true},
		{"1.5", 150, true},
		{"1.23", 123, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"$", 0, false},
		{"1.\u0663", 0, false}, // Arabic-Indic digit
		{"\u0661\u0662", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDollarsToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestFormatUSD(t *testing.T) {
	cases := []struct {
		m    Money
		want string
	}{
		{Dollars(4440), "$4,440"},
		{Dollars(26352), "$26,352"},
		{Dollars(0), "$0"},
		{Money{Cents: 590450}, "$5,904.50"},
		{Dollars(-1464), "-$1,464"},
	}
	for _, tc := range cases {
		if got := tc.m.FormatUSD(); got != tc.want {
			t.Errorf("FormatUSD(%d) = %q, want %q", tc.m.Cents, got, tc.want)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	d := Dollars(5904).Sub(Dollars(4440))
	if d != Dollars(1464) {
		t.Fatalf("sub: got %v", d)
	}
	if d.Times(SavingsHorizonYears) != Dollars(26352) {
		t.Fatalf("times: got %v", d.Times(SavingsHorizonYears))
	}
}
