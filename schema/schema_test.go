package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTable(columns []string, rows ...[]string) *Table {
	t := &Table{Columns: columns}
	for _, r := range rows {
		row := make([]Cell, len(r))
		for i, v := range r {
			row[i] = Value(v)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"tenure", "tenure"},
		{"Monthly Charges", "monthlycharges"},
		{"monthly_charges", "monthlycharges"},
		{"  MONTHLY-CHARGES ", "monthlycharges"},
		{"Customer.ID#2", "customerid2"},
		{"Ünïcödé Näme", "ünïcödénäme"},
		{"___", ""},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"", " ", "Tenure", "Monthly Charges", "İstanbul", "ǅemal", "ß-Straße",
		"áb", "١٢٣ Arabic digits", "tab\tsep", "\xff\xfe invalid utf8",
	}
	for _, s := range inputs {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once), "normalize(%q) is not idempotent", s)
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 1.0, Similarity("tenure", "tenure"))
	assert.Equal(t, 0.0, Similarity("abc", ""))
	assert.Equal(t, 0.0, Similarity("abc", "xyz"))
	assert.InDelta(t, 1-3.0/7.0, Similarity("kitten", "sitting"), 1e-9)
	assert.InDelta(t, 1-1.0/14.0, Similarity("monthlycharges", "monthlycharge"), 1e-9)
	assert.Equal(t, Similarity("flaw", "lawn"), Similarity("lawn", "flaw"))
}

func TestSuggest_ExactMatchAfterNormalization(t *testing.T) {
	got := Suggest(
		[]string{"tenure", "MonthlyCharges"},
		[]string{"Tenure", "monthly_charges", "CustomerID"},
	)

	assert.Equal(t, Mapping{"tenure": "Tenure", "MonthlyCharges": "monthly_charges"}, got)
}

func TestSuggest_FuzzyFallback(t *testing.T) {
	got := Suggest(
		[]string{"MonthlyCharges", "TotalCharges", "Contract"},
		[]string{"monthly_charge", "gender", "contracts"},
	)

	assert.Equal(t, "monthly_charge", got["MonthlyCharges"])
	assert.Equal(t, "contracts", got["Contract"])
	assert.Equal(t, "", got["TotalCharges"])
}

func TestSuggest_ExactBeatsCloserFuzzy(t *testing.T) {
	// "tenur" is a strong fuzzy candidate, but "TENURE " normalizes exactly.
	got := Suggest([]string{"tenure"}, []string{"tenur", "TENURE "})

	assert.Equal(t, "TENURE ", got["tenure"])
}

func TestSuggest_DuplicateNormalizedNamesLastWins(t *testing.T) {
	got := Suggest([]string{"tenure"}, []string{"Tenure", "tenure", "TENURE"})

	assert.Equal(t, "TENURE", got["tenure"])
}

func TestSuggest_FuzzyTieKeepsFirstDetected(t *testing.T) {
	got := Suggest([]string{"abcd"}, []string{"abce", "abcf"})

	assert.Equal(t, "abce", got["abcd"])
}

func TestSuggest_Completeness(t *testing.T) {
	cases := []struct {
		required []string
		detected []string
	}{
		{nil, nil},
		{[]string{"a", "b"}, nil},
		{[]string{"tenure", "gender", "PaymentMethod"}, []string{"x", "Gender", "payment method", "zzz"}},
		{[]string{""}, []string{"", "???"}},
	}

	for _, tc := range cases {
		got := Suggest(tc.required, tc.detected)
		require.Len(t, got, len(tc.required))
		for _, req := range tc.required {
			v, ok := got[req]
			require.True(t, ok, "missing key %q", req)
			if v != "" {
				assert.Contains(t, tc.detected, v)
			}
		}
	}
}

func TestAlign_NormalizedExactMatch(t *testing.T) {
	table := newTable(
		[]string{"Tenure", "monthly_charges", "CustomerID"},
		[]string{"12", "70.5", "c-1"},
		[]string{"3", "20.0", "c-2"},
	)

	res := Align(table, []string{"tenure", "MonthlyCharges"}, nil)

	assert.Empty(t, res.Unresolved)
	assert.Equal(t, []string{"tenure", "MonthlyCharges"}, res.Table.Columns)
	require.Len(t, res.Table.Rows, 2)
	assert.Equal(t, []Cell{Value("12"), Value("70.5")}, res.Table.Rows[0])
	assert.Equal(t, []Cell{Value("3"), Value("20.0")}, res.Table.Rows[1])
	assert.Equal(t, Mapping{"tenure": "Tenure", "MonthlyCharges": "monthly_charges"}, res.Mapping)
}

func TestAlign_UnresolvedColumnIsNullFilled(t *testing.T) {
	table := newTable([]string{"tenure"}, []string{"1"}, []string{"2"}, []string{"3"})

	res := Align(table, []string{"tenure", "Contract", "gender"}, nil)

	assert.Equal(t, []string{"Contract", "gender"}, res.Unresolved)
	assert.Equal(t, "", res.Mapping["Contract"])
	for _, row := range res.Table.Rows {
		require.Len(t, row, 3)
		assert.True(t, row[1].IsNull())
		assert.True(t, row[2].IsNull())
		assert.False(t, row[0].IsNull())
	}
}

func TestAlign_ExplicitMappingTakesPrecedence(t *testing.T) {
	table := newTable(
		[]string{"tenure", "months_active"},
		[]string{"1", "40"},
	)

	res := Align(table, []string{"tenure"}, Mapping{"tenure": "months_active"})

	assert.Empty(t, res.Unresolved)
	assert.Equal(t, "months_active", res.Mapping["tenure"])
	assert.Equal(t, Value("40"), res.Table.Rows[0][0])
}

func TestAlign_RepeatedHeaderReadsLastColumn(t *testing.T) {
	table := newTable(
		[]string{"tenure", "Contract", "tenure"},
		[]string{"1", "Two year", "40"},
	)

	res := Align(table, []string{"tenure", "Contract"}, nil)
	assert.Equal(t, []Cell{Value("40"), Value("Two year")}, res.Table.Rows[0])
	assert.Equal(t, "tenure", res.Mapping["tenure"])

	res = Align(table, []string{"months"}, Mapping{"months": "tenure"})
	assert.Equal(t, Value("40"), res.Table.Rows[0][0], "explicit mapping uses the same column")
}

func TestAlign_NormalizedDuplicatesReadLastColumn(t *testing.T) {
	table := newTable(
		[]string{"Tenure", "TENURE"},
		[]string{"1", "40"},
	)

	res := Align(table, []string{"tenure"}, nil)

	assert.Equal(t, "TENURE", res.Mapping["tenure"])
	assert.Equal(t, Value("40"), res.Table.Rows[0][0])
}

func TestAlign_ExplicitMappingToMissingColumnFallsThrough(t *testing.T) {
	table := newTable([]string{"Tenure"}, []string{"7"})

	res := Align(table, []string{"tenure", "gender"}, Mapping{
		"tenure": "does_not_exist",
		"gender": "also_missing",
	})

	assert.Equal(t, "Tenure", res.Mapping["tenure"])
	assert.Equal(t, Value("7"), res.Table.Rows[0][0])
	assert.Equal(t, []string{"gender"}, res.Unresolved)
	assert.True(t, res.Table.Rows[0][1].IsNull())
}

func TestAlign_NoFuzzyFallback(t *testing.T) {
	table := newTable([]string{"monthly_charge"}, []string{"10"})

	res := Align(table, []string{"MonthlyCharges"}, nil)

	assert.Equal(t, []string{"MonthlyCharges"}, res.Unresolved)
}

func TestAlign_OutputFollowsRequiredOrder(t *testing.T) {
	table := newTable([]string{"c", "b", "a"}, []string{"3", "2", "1"})

	res := Align(table, []string{"a", "b", "c"}, nil)

	assert.Equal(t, []string{"a", "b", "c"}, res.Table.Columns)
	assert.Equal(t, []Cell{Value("1"), Value("2"), Value("3")}, res.Table.Rows[0])
}

func TestAlign_DoesNotMutateInput(t *testing.T) {
	table := newTable([]string{"b", "a"}, []string{"2", "1"})
	required := []string{"a", "b"}

	res := Align(table, required, nil)
	res.Table.Columns[0] = "changed"
	res.Table.Rows[0][0] = Value("changed")

	assert.Equal(t, []string{"a", "b"}, required)
	assert.Equal(t, []string{"b", "a"}, table.Columns)
	assert.Equal(t, Value("2"), table.Rows[0][0])
}

func TestReadCSV(t *testing.T) {
	input := "\uFEFFcustomerID, tenure ,Contract\n" +
		"c-1,12,Month-to-month\n" +
		"c-2,NA,\n"

	table, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"customerID", "tenure", "Contract"}, table.Columns)
	require.Equal(t, 2, table.NumRows())
	assert.Equal(t, Value("12"), table.Rows[0][1])
	assert.True(t, table.Rows[1][1].IsNull())
	assert.True(t, table.Rows[1][2].IsNull())

	ids, ok := table.Column("customerID")
	require.True(t, ok)
	assert.Equal(t, []Cell{Value("c-1"), Value("c-2")}, ids)
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoHeader)

	_, err = ReadCSV(strings.NewReader("a,b\n1,2,3\n"))
	assert.Error(t, err)
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, table.NumRows())
}
