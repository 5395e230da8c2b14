package throttle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/toolink/throttle/record"
)

func TestExtractKeyOrdersValues(t *testing.T) {
	paths := [][]string{{"b"}, {"a"}}
	key := extractKey(record.Record{"a": "1", "b": "2"}, paths)
	assert.Equal(t, []string{"2", "1"}, key.parts)
}

func TestExtractKeyStringifiesValues(t *testing.T) {
	paths := [][]string{{"pid"}}
	key := extractKey(record.Record{"pid": 42}, paths)
	assert.Equal(t, []string{"42"}, key.parts)
}

func TestExtractKeyAbsentDistinctFromEmpty(t *testing.T) {
	paths := [][]string{{"name"}}
	withEmpty := extractKey(record.Record{"name": ""}, paths)
	missing := extractKey(record.Record{}, paths)
	assert.NotEqual(t, withEmpty.id, missing.id)
}

func TestExtractKeyNestedAndMissingMix(t *testing.T) {
	paths := [][]string{{"k8s", "pod"}, {"level"}}
	rec := record.Record{"k8s": map[string]any{"pod": "api-0"}}
	key := extractKey(rec, paths)
	assert.Equal(t, []string{"api-0", absentValue}, key.parts)

	other := extractKey(record.Record{"k8s": map[string]any{"pod": "api-1"}}, paths)
	assert.NotEqual(t, key.id, other.id)
}

func TestDisplayAndLabelParts(t *testing.T) {
	parts := []string{"api", absentValue}
	assert.Equal(t, []string{"api", "(missing)"}, displayParts(parts))
	assert.Equal(t, []string{"api", ""}, labelParts(parts))
}
