package savings

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolcompare/internal/core"
	"schoolcompare/internal/tax"
)

func ref(id, district, signal string) core.SchoolRef {
	return core.SchoolRef{ID: id, Name: "School " + id, DistrictID: district, Kind: core.KindElementary, MunicipalitySignal: signal}
}

func TestSummarizeTwoDistricts(t *testing.T) {
	schools := []core.SchoolRef{ref("a", "3904676", ""), ref("b", "3904702", "")}
	resolve := Static(map[string]core.Money{"a": core.Dollars(4440), "b": core.Dollars(5904)})

	sum, ok := Summarize(schools, resolve)
	require.True(t, ok)
	assert.Equal(t, core.Dollars(4440), sum.MinAnnual)
	assert.Equal(t, core.Dollars(5904), sum.MaxAnnual)
	assert.Equal(t, core.Dollars(1464), sum.AnnualDelta)
	assert.Equal(t, 18, sum.HorizonYears)
	assert.Equal(t, core.Dollars(26352), sum.ProjectedDelta)
	assert.Equal(t, "$26,352", sum.ProjectedDelta.FormatUSD())
	assert.Equal(t, []string{"a"}, sum.Lowest)
	assert.True(t, sum.HasSavings())
}

func TestSummarizeSameFigures(t *testing.T) {
	schools := []core.SchoolRef{ref("a", "d", ""), ref("b", "d", ""), ref("c", "d", "")}
	resolve := Static(map[string]core.Money{"a": core.Dollars(6000), "b": core.Dollars(6000), "c": core.Dollars(6000)})

	sum, ok := Summarize(schools, resolve)
	require.True(t, ok)
	assert.Equal(t, core.Money{}, sum.AnnualDelta)
	assert.Equal(t, core.Money{}, sum.ProjectedDelta)
	assert.False(t, sum.HasSavings())
	assert.Len(t, sum.Lowest, 3)
}

func TestSummarizeTooFewSchools(t *testing.T) {
	resolve := Static(map[string]core.Money{"a": core.Dollars(1)})

	_, ok := Summarize(nil, resolve)
	assert.False(t, ok)

	_, ok = Summarize([]core.SchoolRef{ref("a", "d", "")}, resolve)
	assert.False(t, ok)
}

func TestSummarizeExcludesUnresolved(t *testing.T) {
	schools := []core.SchoolRef{ref("a", "d", ""), ref("x", "unknown", ""), ref("b", "d", "")}
	resolve := Static(map[string]core.Money{"a": core.Dollars(5000), "b": core.Dollars(7000)})

	sum, ok := Summarize(schools, resolve)
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, sum.Unresolved)
	assert.Equal(t, core.Dollars(2000), sum.AnnualDelta)
	assert.Equal(t, core.Dollars(36000), sum.ProjectedDelta)

	got := make([]string, 0, len(sum.Figures))
	for _, f := range sum.Figures {
		got = append(got, f.School.ID)
	}
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Fatalf("figure order mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeOnlyOneResolved(t *testing.T) {
	schools := []core.SchoolRef{ref("a", "d", ""), ref("x", "unknown", "")}
	sum, ok := Summarize(schools, Static(map[string]core.Money{"a": core.Dollars(5000)}))
	assert.False(t, ok)
	assert.Equal(t, []string{"x"}, sum.Unresolved)
}

func TestSummarizeCallsResolverOncePerSchool(t *testing.T) {
	calls := map[string]int{}
	resolve := func(s core.SchoolRef) (core.Money, error) {
		calls[s.ID]++
		return core.Dollars(int64(len(s.ID)) * 1000), nil
	}
	schools := []core.SchoolRef{ref("a", "d", ""), ref("bb", "d", ""), ref("ccc", "d", "")}

	sum, ok := Summarize(schools, resolve)
	require.True(t, ok)
	assert.Equal(t, map[string]int{"a": 1, "bb": 1, "ccc": 1}, calls)
	assert.Equal(t, core.Dollars(2000), sum.AnnualDelta)
}

func TestFromEstimator(t *testing.T) {
	est, err := tax.NewEmbeddedEstimator()
	require.NoError(t, err)

	schools := []core.SchoolRef{
		ref("powell", "3904676", "Powell"),
		ref("galena", "3904676", "Galena"),
		ref("dublin", "3904702", "43016"),
		ref("elsewhere", "0000000", "Columbus"),
	}
	sum, ok := Summarize(schools, FromEstimator(est))
	require.True(t, ok)
	assert.Equal(t, core.Dollars(5800), sum.MinAnnual)
	assert.Equal(t, core.Dollars(7300), sum.MaxAnnual)
	assert.Equal(t, core.Dollars(1500*18), sum.ProjectedDelta)
	assert.Equal(t, []string{"galena"}, sum.Lowest)
	assert.Equal(t, []string{"elsewhere"}, sum.Unresolved)
}
