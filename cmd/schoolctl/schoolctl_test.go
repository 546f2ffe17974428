package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("TAX_TABLE_PATH", "")
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute(), out.String())
	return out.String()
}

func TestTaxEstimate(t *testing.T) {
	out := run(t, "tax", "estimate", "3904702", "--signal", "43016")
	assert.Contains(t, out, "Highest in Dublin, Washington Twp")
	assert.Contains(t, out, "$7,300")

	out = run(t, "tax", "estimate", "3904676")
	assert.Contains(t, out, "matched:        default")
}

func TestTaxEstimateUnknownDistrict(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"tax", "estimate", "1234567"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the tax table")
}

func TestTaxTable(t *testing.T) {
	out := run(t, "tax", "table")
	assert.Contains(t, out, "$600,000")
	assert.Contains(t, out, "washington-twp")
}

func TestSavingsFromSample(t *testing.T) {
	out := run(t, "savings", "--sample", "390467601001", "390470201001")
	assert.Contains(t, out, "annual difference: $950")
	assert.Contains(t, out, "over 18 years:     $17,100")
	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Contains(t, lines[1], "lowest")
}

func TestSeedMigrateAndTop(t *testing.T) {
	db := filepath.Join(t.TempDir(), "schools.db")

	out := run(t, "--db", db, "seed", "--sample")
	assert.Contains(t, out, "imported 2 districts")

	out = run(t, "--db", db, "migrate", "version")
	assert.Contains(t, out, "schema version")
	assert.NotContains(t, out, "version 0")

	out = run(t, "--db", db, "savings", "390467601004", "390470201004")
	assert.Contains(t, out, "annual difference:")

	out = run(t, "--db", db, "top")
	assert.Contains(t, out, "SCHOOL")
}
