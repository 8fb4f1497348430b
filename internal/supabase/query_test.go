package supabase

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryPath(t *testing.T) {
	path := From("project").In("id", "a", "b").Select("id", "name").Path()

	u, err := url.Parse(path)
	require.NoError(t, err)
	assert.Equal(t, "/rest/v1/project", u.Path)
	assert.Equal(t, "in.(a,b)", u.Query().Get("id"))
	assert.Equal(t, "id,name", u.Query().Get("select"))
}

func TestQueryEqAndLimit(t *testing.T) {
	path := From("project_members").Eq("projectId", "p1").Eq("userId", "u1").Limit(1).Path()

	u, err := url.Parse(path)
	require.NoError(t, err)
	assert.Equal(t, "eq.p1", u.Query().Get("projectId"))
	assert.Equal(t, "eq.u1", u.Query().Get("userId"))
	assert.Equal(t, "1", u.Query().Get("limit"))
}

func TestQueryBareTable(t *testing.T) {
	assert.Equal(t, "/rest/v1/category", From("category").Path())
}
