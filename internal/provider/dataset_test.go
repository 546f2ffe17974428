package provider

import (
	"errors"
	"strings"
	"testing"

	"schoolcompare/internal/core"
)

func TestSampleDatasetIsValid(t *testing.T) {
	ds, err := SampleDataset()
	if err != nil {
		t.Fatal(err)
	}
	leas := map[string]bool{}
	for _, d := range ds.Districts {
		leas[d.LEAID] = true
	}
	if !leas["3904676"] || !leas["3904702"] {
		t.Fatalf("sample must cover both districts, got %v", leas)
	}
}

func TestDatasetValidate(t *testing.T) {
	cases := map[string]struct {
		raw  string
		want string
	}{
		"blank district": {`{"districts":[{"leaid":""}]}`, "leaid and name are required"},
		"duplicate district": {
			`{"districts":[{"leaid":"1","name":"a"},{"leaid":"1","name":"b"}]}`,
			"duplicate leaid",
		},
		"dangling school": {
			`{"districts":[],"schools":[{"ncessch":"s","leaid":"9","name":"S"}]}`,
			`unknown district "9"`,
		},
		"dangling enrollment": {
			`{"districts":[],"enrollment":[{"ncessch":"s","school_year":"2023-24"}]}`,
			"enrollment s: unknown school",
		},
		"not json": {`{`, "decode dataset"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDataset([]byte(tc.raw))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestRecordConversion(t *testing.T) {
	lo, hi := "06", "08"
	per := Amount(1324100)
	d := DistrictRecord{LEAID: "1", Name: "D", PerPupilExpenditure: &per}.District()
	if d.PerPupilExpenditure == nil || d.PerPupilExpenditure.Cents != 1324100 {
		t.Fatalf("per pupil = %v", d.PerPupilExpenditure)
	}
	if d.TotalRevenue != nil {
		t.Fatal("absent revenue should stay nil")
	}

	s := SchoolRecord{NCESSCH: "s", LEAID: "1", Name: "S", GradesLow: &lo, GradesHigh: &hi}.School()
	if s.Kind != core.KindMiddle {
		t.Fatalf("kind = %s", s.Kind)
	}
	s = SchoolRecord{NCESSCH: "s", LEAID: "1", Name: "S", SchoolType: "High", GradesLow: &lo, GradesHigh: &hi}.School()
	if s.Kind != core.KindHigh {
		t.Fatalf("stored kind should win, got %s", s.Kind)
	}
}

func TestAmountAcceptsNumbersAndPublishedStrings(t *testing.T) {
	raw := `{
		"districts": [
			{"leaid": "1", "name": "A", "per_pupil_expenditure": 13241.5, "total_revenue": "$250,000,000", "local_revenue": null},
			{"leaid": "2", "name": "B", "per_pupil_expenditure": "15,982"}
		]
	}`
	ds, err := ParseDataset([]byte(raw))
	if err != nil {
		t.Fatalf("ParseDataset() error = %v", err)
	}
	a := ds.Districts[0].District()
	if a.PerPupilExpenditure.Cents != 1324150 || a.TotalRevenue.Cents != 25000000000 {
		t.Errorf("district A amounts = %v, %v", a.PerPupilExpenditure, a.TotalRevenue)
	}
	if a.LocalRevenue != nil {
		t.Errorf("null revenue should stay nil, got %v", a.LocalRevenue)
	}
	if b := ds.Districts[1].District(); b.PerPupilExpenditure.Cents != 1598200 {
		t.Errorf("district B per pupil = %v", b.PerPupilExpenditure)
	}

	for _, bad := range []string{`-5`, `"12.\u0663"`, `"n/a"`} {
		_, err := ParseDataset([]byte(`{"districts":[{"leaid":"1","name":"A","per_pupil_expenditure":` + bad + `}]}`))
		if !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("%s: want ErrInvalidAmount, got %v", bad, err)
		}
	}
}
