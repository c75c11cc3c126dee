package query

import (
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseComparisonAndPaging(t *testing.T) {
	values := url.Values{
		"price[gte]": {"100"},
		"sort":       {"-price"},
		"page":       {"2"},
		"limit":      {"5"},
	}

	opts := Parse(values)

	require.Len(t, opts.Conditions, 1)
	assert.Equal(t, Condition{Column: "price", Operator: ">=", Value: "100"}, opts.Conditions[0])
	require.Len(t, opts.Sort, 1)
	assert.Equal(t, SortField{Column: "price", Desc: true}, opts.Sort[0])
	assert.Equal(t, 2, opts.Page)
	assert.Equal(t, 5, opts.Limit)
}

func TestParseReservedKeysAreNotFilters(t *testing.T) {
	values := url.Values{
		"page":   {"3"},
		"sort":   {"name"},
		"limit":  {"10"},
		"fields": {"name,email"},
		"search": {"smith"},
		"role":   {"admin"},
	}

	opts := Parse(values)

	require.Len(t, opts.Conditions, 1)
	assert.Equal(t, Condition{Column: "role", Operator: "=", Value: "admin"}, opts.Conditions[0])
	assert.Equal(t, []string{"name", "email"}, opts.Fields)
	assert.Equal(t, "smith", opts.Search)
}

func TestParseAllComparisonOperators(t *testing.T) {
	values := url.Values{
		"a[gte]": {"1"},
		"b[gt]":  {"2"},
		"c[lte]": {"3"},
		"d[lt]":  {"4"},
	}

	opts := Parse(values)

	require.Len(t, opts.Conditions, 4)
	assert.Equal(t, ">=", opts.Conditions[0].Operator)
	assert.Equal(t, ">", opts.Conditions[1].Operator)
	assert.Equal(t, "<=", opts.Conditions[2].Operator)
	assert.Equal(t, "<", opts.Conditions[3].Operator)
}

func TestParseUnknownSuffixFallsBackToEquality(t *testing.T) {
	opts := Parse(url.Values{"price": {"100"}})

	require.Len(t, opts.Conditions, 1)
	assert.Equal(t, "=", opts.Conditions[0].Operator)
}

func TestParseMalformedKeysAreDropped(t *testing.T) {
	values := url.Values{
		"price[between]": {"100"},
		"1; DROP TABLE":  {"x"},
		"name or 1=1 --": {"x"},
		"valid_column":   {"ok"},
	}

	opts := Parse(values)

	require.Len(t, opts.Conditions, 1)
	assert.Equal(t, "valid_column", opts.Conditions[0].Column)
}

func TestParsePagingDefaults(t *testing.T) {
	for name, values := range map[string]url.Values{
		"absent":      {},
		"non-numeric": {"page": {"abc"}, "limit": {"xyz"}},
		"zero":        {"page": {"0"}, "limit": {"0"}},
		"negative":    {"page": {"-2"}, "limit": {"-5"}},
	} {
		t.Run(name, func(t *testing.T) {
			opts := Parse(values)
			assert.Equal(t, DefaultPage, opts.Page)
			assert.Equal(t, DefaultLimit, opts.Limit)
		})
	}
}

func TestParseMultiFieldSortPreservesOrder(t *testing.T) {
	opts := Parse(url.Values{"sort": {"-price,created_at,-name"}})

	require.Len(t, opts.Sort, 3)
	assert.Equal(t, SortField{Column: "price", Desc: true}, opts.Sort[0])
	assert.Equal(t, SortField{Column: "created_at", Desc: false}, opts.Sort[1])
	assert.Equal(t, SortField{Column: "name", Desc: true}, opts.Sort[2])
}

func TestEscapeSearchTermMatchesLiteralOnly(t *testing.T) {
	escaped := EscapeSearchTerm("a.b*")

	re, err := regexp.Compile("(?i)" + escaped)
	require.NoError(t, err)

	assert.True(t, re.MatchString("literal a.b* here"))
	assert.True(t, re.MatchString("LITERAL A.B* HERE"))
	assert.False(t, re.MatchString("axb"), "dot must not match any character")
	assert.False(t, re.MatchString("a.bbbb"), "star must not repeat")
}

func TestOffsetDerivation(t *testing.T) {
	opts := Parse(url.Values{"page": {"2"}, "limit": {"5"}})
	assert.Equal(t, 5, (opts.Page-1)*opts.Limit)
}
