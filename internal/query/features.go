// Package query turns caller-supplied list parameters into a single gorm
// statement. Filtering, sorting, projection, pagination and search all chain
// onto one *gorm.DB that the repository executes exactly once, so the search
// predicate always narrows the result set before the page window is applied.
package query

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
)

// reserved control parameters are never treated as filter predicates.
var reserved = map[string]struct{}{
	"page":   {},
	"sort":   {},
	"limit":  {},
	"fields": {},
	"search": {},
}

var (
	identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	comparisonPattern = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_]*)\[(gte|gt|lte|lt)\]$`)
)

var operators = map[string]string{
	"gte": ">=",
	"gt":  ">",
	"lte": "<=",
	"lt":  "<",
}

type Condition struct {
	Column   string
	Operator string
	Value    string
}

type SortField struct {
	Column string
	Desc   bool
}

// Options is the query specification derived from one request. It holds no
// state beyond that request.
type Options struct {
	Conditions []Condition
	Sort       []SortField
	Fields     []string
	Page       int
	Limit      int
	Search     string
}

// Defaults carries the caller-independent parts supplied by the handler.
type Defaults struct {
	// Sort in the same syntax callers use, e.g. "-created_at,name".
	Sort string
	// SearchColumns are the text columns a free-text search matches against.
	SearchColumns []string
	// HiddenColumns are never projected, whether or not the caller asks.
	HiddenColumns []string
}

// Parse derives a query specification from raw request parameters. Unknown
// keys become plain equality predicates on purpose; keys that are not valid
// column identifiers are dropped, which makes malformed filters a no-op
// rather than an error.
func Parse(values url.Values) Options {
	opts := Options{
		Page:   DefaultPage,
		Limit:  DefaultLimit,
		Search: values.Get("search"),
	}

	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 0 {
		opts.Page = page
	}
	if limit, err := strconv.Atoi(values.Get("limit")); err == nil && limit > 0 {
		opts.Limit = limit
	}

	opts.Sort = parseSortFields(values.Get("sort"))

	for _, field := range strings.Split(values.Get("fields"), ",") {
		field = strings.TrimSpace(field)
		if identifierPattern.MatchString(field) {
			opts.Fields = append(opts.Fields, field)
		}
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, ok := reserved[key]; ok {
			continue
		}
		value := values.Get(key)
		if m := comparisonPattern.FindStringSubmatch(key); m != nil {
			opts.Conditions = append(opts.Conditions, Condition{
				Column:   m[1],
				Operator: operators[m[2]],
				Value:    value,
			})
			continue
		}
		if identifierPattern.MatchString(key) {
			opts.Conditions = append(opts.Conditions, Condition{
				Column:   key,
				Operator: "=",
				Value:    value,
			})
		}
	}

	return opts
}

func parseSortFields(raw string) []SortField {
	var fields []SortField
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		column := strings.TrimPrefix(part, "-")
		if identifierPattern.MatchString(column) {
			fields = append(fields, SortField{Column: column, Desc: desc})
		}
	}
	return fields
}

// Apply chains every stage onto db in a fixed order. The returned statement
// is still lazy; splitting the stages into separate executions would change
// result counts under pagination.
func (o Options) Apply(db *gorm.DB, d Defaults) *gorm.DB {
	for _, cond := range o.Conditions {
		db = db.Where(fmt.Sprintf("%s %s ?", cond.Column, cond.Operator), cond.Value)
	}

	if o.Search != "" && len(d.SearchColumns) > 0 {
		term := EscapeSearchTerm(o.Search)
		clauses := make([]string, 0, len(d.SearchColumns))
		args := make([]interface{}, 0, len(d.SearchColumns))
		for _, column := range d.SearchColumns {
			clauses = append(clauses, column+" ~* ?")
			args = append(args, term)
		}
		db = db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}

	sortFields := o.Sort
	if len(sortFields) == 0 {
		sortFields = parseSortFields(d.Sort)
	}
	for _, field := range sortFields {
		order := field.Column
		if field.Desc {
			order += " DESC"
		}
		db = db.Order(order)
	}

	hidden := make(map[string]struct{}, len(d.HiddenColumns))
	for _, column := range d.HiddenColumns {
		hidden[column] = struct{}{}
	}
	if len(o.Fields) > 0 {
		fields := make([]string, 0, len(o.Fields))
		for _, field := range o.Fields {
			if _, ok := hidden[field]; !ok {
				fields = append(fields, field)
			}
		}
		if len(fields) > 0 {
			db = db.Select(fields)
		}
	} else if len(d.HiddenColumns) > 0 {
		db = db.Omit(d.HiddenColumns...)
	}

	return db.Offset((o.Page - 1) * o.Limit).Limit(o.Limit)
}

// EscapeSearchTerm quotes regex metacharacters so a search term only ever
// matches its literal occurrences.
func EscapeSearchTerm(term string) string {
	return regexp.QuoteMeta(term)
}
