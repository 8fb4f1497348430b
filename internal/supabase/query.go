package supabase

import (
	"net/url"
	"strconv"
	"strings"
)

// Query builds PostgREST table paths such as
// /rest/v1/task?project_id=eq.<id>&select=id,title.
type Query struct {
	table  string
	values url.Values
}

// From starts a query against a table.
func From(table string) *Query {
	return &Query{table: table, values: url.Values{}}
}

// Eq adds a column=eq.value filter.
func (q *Query) Eq(column, value string) *Query {
	q.values.Add(column, "eq."+value)
	return q
}

// In adds a column=in.(a,b,...) filter.
func (q *Query) In(column string, values ...string) *Query {
	q.values.Add(column, "in.("+strings.Join(values, ",")+")")
	return q
}

// Select restricts the returned columns.
func (q *Query) Select(columns ...string) *Query {
	q.values.Set("select", strings.Join(columns, ","))
	return q
}

// Limit caps the number of returned rows.
func (q *Query) Limit(n int) *Query {
	q.values.Set("limit", strconv.Itoa(n))
	return q
}

// Path renders the query relative to the backend base URL.
func (q *Query) Path() string {
	p := "/rest/v1/" + q.table
	if len(q.values) == 0 {
		return p
	}
	return p + "?" + q.values.Encode()
}
