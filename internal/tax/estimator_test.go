package tax

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolcompare/internal/core"
)

const (
	olentangy = "3904676"
	dublin    = "3904702"
)

func embedded(t *testing.T) *Estimator {
	t.Helper()
	e, err := NewEmbeddedEstimator()
	require.NoError(t, err)
	return e
}

func TestEmbeddedTableIsValid(t *testing.T) {
	tbl, err := EmbeddedTable()
	require.NoError(t, err)
	assert.Equal(t, int64(600000), tbl.ReferenceHomeValue)
	require.Len(t, tbl.Districts, 2)
	for _, d := range tbl.Districts {
		assert.NotNil(t, d.Default, "district %s has no default", d.ID)
	}
}

func TestEstimate(t *testing.T) {
	e := embedded(t)

	cases := []struct {
		name     string
		district string
		signal   string
		rep      int64
		low      int64
		high     int64
		matched  string
	}{
		{"olentangy default", olentangy, "", 4400, 4200, 4400, "default"},
		{"powell", olentangy, "Powell", 6350, 6200, 6500, "powell"},
		{"powell any case", olentangy, "  POWELL ", 6350, 6200, 6500, "powell"},
		{"lewis center", olentangy, "lewis  center", 6050, 5900, 6200, "lewis-center"},
		{"galena", olentangy, "Galena", 5800, 5700, 5900, "galena"},
		{"olentangy unknown city", olentangy, "Delaware", 4400, 4200, 4400, "default"},
		{"dublin default", dublin, "43017", 7100, 6900, 7300, "default"},
		{"dublin 43016", dublin, "43016", 7300, 7100, 7500, "washington-twp"},
		{"dublin 43081", dublin, "43081", 6700, 6500, 6900, "delaware-portion"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := e.Estimate(tc.district, tc.signal)
			require.NoError(t, err)
			assert.Equal(t, core.Dollars(tc.rep), b.Representative)
			assert.Equal(t, core.Dollars(tc.low), b.Low)
			assert.Equal(t, core.Dollars(tc.high), b.High)
			assert.Equal(t, tc.matched, b.Matched)
			assert.Equal(t, tc.district, b.DistrictID)
			assert.NotEmpty(t, b.Label)
		})
	}
}

func TestEstimateUnknownDistrict(t *testing.T) {
	e := embedded(t)
	_, err := e.Estimate("9999999", "Powell")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnknownDistrict))
	assert.False(t, e.Knows("9999999"))
	assert.True(t, e.Knows(olentangy))
}

func TestSignalFor(t *testing.T) {
	e := embedded(t)
	assert.Equal(t, "Powell", e.SignalFor(olentangy, "Powell", "43065"))
	assert.Equal(t, "43016", e.SignalFor(dublin, "Dublin", "43016"))
	assert.Equal(t, "Columbus", e.SignalFor("0000000", "Columbus", "43215"))
}

func TestParseTableRejectsBadTables(t *testing.T) {
	cases := map[string]struct {
		yaml string
		want string
	}{
		"missing default": {
			yaml: `
districts:
  - id: "1"
    signal: city
`,
			want: "default bucket is required",
		},
		"representative out of range": {
			yaml: `
districts:
  - id: "1"
    signal: city
    default: {low: 10, high: 20, representative: 30, label: x}
`,
			want: "representative 30 outside 10-20",
		},
		"ambiguous match": {
			yaml: `
districts:
  - id: "1"
    signal: city
    default: {low: 1, high: 2, representative: 1, label: d}
    overrides:
      - {name: a, match: [Powell], low: 1, high: 2, representative: 2, label: a}
      - {name: b, match: [powell], low: 1, high: 2, representative: 2, label: b}
`,
			want: `used by both "a" and "b"`,
		},
		"bad signal": {
			yaml: `
districts:
  - id: "1"
    signal: county
    default: {low: 1, high: 2, representative: 1, label: d}
`,
			want: "signal must be",
		},
		"duplicate district": {
			yaml: `
districts:
  - {id: "1", signal: zip, default: {low: 1, high: 2, representative: 1, label: d}}
  - {id: "1", signal: zip, default: {low: 1, high: 2, representative: 1, label: d}}
`,
			want: "duplicate district id",
		},
		"not yaml": {
			yaml: "districts: [",
			want: "parse tax table",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTable([]byte(tc.yaml))
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tc.want), "error %q missing %q", err, tc.want)
		})
	}
}

func TestReplaceSwapsTable(t *testing.T) {
	e := embedded(t)
	tbl, err := ParseTable([]byte(`
reference_home_value: 400000
districts:
  - id: "3904676"
    signal: city
    default: {low: 100, high: 200, representative: 150, label: replaced}
`))
	require.NoError(t, err)

	e.Replace(tbl)

	b, err := e.Estimate(olentangy, "Powell")
	require.NoError(t, err)
	assert.Equal(t, core.Dollars(150), b.Representative)
	assert.Equal(t, core.Dollars(400000), e.ReferenceHomeValue())
	assert.False(t, e.Knows(dublin))
}
