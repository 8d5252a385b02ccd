package pagemeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcherBasicRegistry(t *testing.T) {
	a := Metadata{Title: "A"}
	b := Metadata{Title: "B"}
	m, err := NewMatcher(
		Descriptor{Pattern: "/", Meta: a},
		Descriptor{Pattern: "/plugins/:name", Meta: b},
	)
	require.NoError(t, err)

	got, ok := m.Match("/")
	require.True(t, ok)
	assert.Equal(t, a, got)

	got, ok = m.Match("/plugins/napari-example")
	require.True(t, ok)
	assert.Equal(t, b, got)

	_, ok = m.Match("/non-existent")
	assert.False(t, ok)
}

func TestMatcherOrderMatters(t *testing.T) {
	literal := Metadata{Title: "literal"}
	param := Metadata{Title: "param"}

	literalFirst := MustNewMatcher(
		Descriptor{Pattern: "/plugins/featured", Meta: literal},
		Descriptor{Pattern: "/plugins/:name", Meta: param},
	)
	got, ok := literalFirst.Match("/plugins/featured")
	require.True(t, ok)
	assert.Equal(t, literal, got)

	// Параметрический шаблон, зарегистрированный раньше, перекрывает литерал
	paramFirst := MustNewMatcher(
		Descriptor{Pattern: "/plugins/:name", Meta: param},
		Descriptor{Pattern: "/plugins/featured", Meta: literal},
	)
	got, ok = paramFirst.Match("/plugins/featured")
	require.True(t, ok)
	assert.Equal(t, param, got)
}

func TestMatcherInvalidDescriptor(t *testing.T) {
	_, err := NewMatcher(Descriptor{Pattern: "no-slash"})
	assert.Error(t, err)

	_, err = NewMatcher(
		Descriptor{Pattern: "/a"},
		Descriptor{Pattern: "/a"},
	)
	assert.Error(t, err)
}

func TestResolveRendersParams(t *testing.T) {
	m := DefaultMatcher()

	match, ok := m.Resolve("/plugins/napari-animation")
	require.True(t, ok)
	assert.Equal(t, "/plugins/:name", match.Pattern)
	assert.Equal(t, "napari-animation", match.Params.Get("name"))
	assert.Equal(t, "napari hub | plugins | napari-animation", match.Meta.Title)
	assert.Equal(t, []string{"napari", "napari-animation"}, match.Meta.Keywords)

	_, ok = m.Resolve("/plugins/napari-animation/unknown")
	assert.False(t, ok)
}

func TestHubPagesLiteralsBeforeParams(t *testing.T) {
	m := DefaultMatcher()

	got, ok := m.Match("/plugins")
	require.True(t, ok)
	assert.Equal(t, "napari hub | Plugins", got.Title)

	got, ok = m.Match("/about")
	require.True(t, ok)
	assert.Equal(t, "napari hub | About", got.Title)

	got, ok = m.Match("/plugins/foo/activity")
	require.True(t, ok)
	assert.Contains(t, got.Title, "activity")
}

func TestRenderWithoutParams(t *testing.T) {
	meta := Metadata{Title: "{name}"}
	assert.Equal(t, meta, Render(meta, nil))
}
