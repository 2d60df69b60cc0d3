package update

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"v1.0.0", "v1.0.0", 0},
		{"1.2.0", "v1.10.0", -1},
		{"v2.0", "v1.9.9", 1},
		{"v1.0", "v1.0.1", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, compareVersions(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestCheckForUpdate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/"+Repo+"/releases/latest", r.URL.Path)
		w.Write([]byte(`{"tag_name":"v1.2.0","html_url":"https://example.test/r"}`))
	}))
	defer srv.Close()

	c := NewChecker().WithAPIBase(srv.URL + "/")

	res, err := c.CheckForUpdate(context.Background(), "v1.1.9")
	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.Equal(t, "v1.2.0", res.Latest)
	assert.Equal(t, "https://example.test/r", res.URL)

	res, err = c.CheckForUpdate(context.Background(), "v1.2.0")
	require.NoError(t, err)
	assert.False(t, res.Available)
}

func TestCheckForUpdateStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewChecker().WithAPIBase(srv.URL).CheckForUpdate(context.Background(), "v1.0.0")
	assert.ErrorContains(t, err, "403")
}
