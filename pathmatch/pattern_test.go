package pathmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	p, err := Compile("/api/activity/:name/stats")
	require.NoError(t, err)

	assert.Equal(t, []Segment{
		{Kind: Literal, Value: "api"},
		{Kind: Literal, Value: "activity"},
		{Kind: Param, Value: "name"},
		{Kind: Literal, Value: "stats"},
	}, p.Segments())
	assert.False(t, p.IsLiteral())
	assert.Equal(t, "/api/activity/:name/stats", p.String())

	root, err := Compile("/")
	require.NoError(t, err)
	assert.True(t, root.IsLiteral())
	assert.Empty(t, root.Segments())
}

func TestCompileErrors(t *testing.T) {
	testCases := []struct {
		name    string
		pattern string
	}{
		{"Empty", ""},
		{"No leading slash", "plugins/:name"},
		{"Empty segment", "/plugins//x"},
		{"Trailing slash", "/about/"},
		{"Unnamed param", "/plugins/:"},
		{"Duplicate param", "/a/:x/b/:x"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(tc.pattern)
			assert.Error(t, err)
		})
	}

	assert.Panics(t, func() { MustCompile("") })
}

func TestMatch(t *testing.T) {
	testCases := []struct {
		name    string
		pattern string
		path    string
		match   bool
		params  Params
	}{
		{"Root matches root", "/", "/", true, Params{}},
		{"Root does not match other", "/", "/about", false, nil},
		{"Literal exact", "/about", "/about", true, Params{}},
		{"Literal trailing slash", "/about", "/about/", false, nil},
		{"Root double slash", "/", "//", false, nil},
		{"Literal double slash", "/about", "//about", false, nil},
		{"Param trailing slash", "/plugins/:name", "/plugins/napari-example/", false, nil},
		{"Literal mismatch", "/about", "/faq", false, nil},
		{"Literal longer path", "/about", "/about/team", false, nil},
		{"Param captures", "/plugins/:name", "/plugins/napari-example", true, Params{"name": "napari-example"}},
		{"Param requires segment", "/plugins/:name", "/plugins", false, nil},
		{"Param rejects empty", "/plugins/:name/stats", "/plugins//stats", false, nil},
		{"Param with suffix", "/api/activity/:name/stats", "/api/activity/foo/stats", true, Params{"name": "foo"}},
		{"Suffix mismatch", "/api/activity/:name/stats", "/api/activity/foo/recentStats", false, nil},
		{"Relative path", "/about", "about", false, nil},
		{"Empty path", "/", "", false, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := MustCompile(tc.pattern)
			params, ok := p.Match(tc.path)
			assert.Equal(t, tc.match, ok)
			if tc.match {
				assert.Equal(t, tc.params, params)
			}
		})
	}
}

func TestTableFirstMatchWins(t *testing.T) {
	table := NewTable[string]()
	table.MustAdd("/api/activity/plugins", "activity-plugins")
	table.MustAdd("/api/activity/:name", "activity")

	v, params, ok := table.Lookup("/api/activity/plugins")
	require.True(t, ok)
	assert.Equal(t, "activity-plugins", v)
	assert.Empty(t, params)

	v, params, ok = table.Lookup("/api/activity/napari-foo")
	require.True(t, ok)
	assert.Equal(t, "activity", v)
	assert.Equal(t, "napari-foo", params.Get("name"))

	_, _, ok = table.Lookup("/api/metrics/foo")
	assert.False(t, ok)
	assert.Equal(t, 2, table.Len())
}

func TestTableRejectsDuplicates(t *testing.T) {
	table := NewTable[int]()
	require.NoError(t, table.Add("/a", 1))
	assert.Error(t, table.Add("/a", 2))
	assert.Error(t, table.Add("a", 3))
	assert.Len(t, table.Routes(), 1)
}

func TestParamsGetOnNil(t *testing.T) {
	var p Params
	assert.Equal(t, "", p.Get("name"))
}
