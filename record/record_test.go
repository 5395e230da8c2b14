package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"kubernetes", "container_name"}, SplitPath("kubernetes.container_name"))
	assert.Equal(t, []string{"name"}, SplitPath("name"))
}

func TestDigTopLevel(t *testing.T) {
	rec := Record{"name": "api"}
	v, ok := Dig(rec, []string{"name"})
	assert.True(t, ok)
	assert.Equal(t, "api", v)
}

func TestDigNestedStringMap(t *testing.T) {
	rec := Record{"kubernetes": map[string]any{"labels": map[string]any{"app": "web"}}}
	v, ok := Dig(rec, []string{"kubernetes", "labels", "app"})
	assert.True(t, ok)
	assert.Equal(t, "web", v)
}

func TestDigNestedAnyKeyedMap(t *testing.T) {
	// YAML decoders may produce map[any]any for nested nodes.
	rec := Record{"meta": map[any]any{"region": "eu-1"}}
	v, ok := Dig(rec, []string{"meta", "region"})
	assert.True(t, ok)
	assert.Equal(t, "eu-1", v)
}

func TestDigNestedRecord(t *testing.T) {
	rec := Record{"inner": Record{"x": 1}}
	v, ok := Dig(rec, []string{"inner", "x"})
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestDigMissingSegment(t *testing.T) {
	rec := Record{"a": map[string]any{"b": 1}}
	_, ok := Dig(rec, []string{"a", "c"})
	assert.False(t, ok)
}

func TestDigThroughNonMap(t *testing.T) {
	rec := Record{"a": "leaf"}
	_, ok := Dig(rec, []string{"a", "b"})
	assert.False(t, ok)
}

func TestDigIntermediateValue(t *testing.T) {
	rec := Record{"a": map[string]any{"b": map[string]any{"c": 1}}}
	v, ok := Dig(rec, []string{"a", "b"})
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"c": 1}, v)
}
