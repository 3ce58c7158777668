package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifier_TagOrderIrrelevant(t *testing.T) {
	a := NewIdentifier(TypeOf[string](), Named("db"), NewTag("config", "dsn"))
	b := NewIdentifier(TypeOf[string](), NewTag("config", "dsn"), Named("db"), Named("db"))

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
	assert.Len(t, b.Tags(), 2)
}

func TestIdentifier_DifferentTags(t *testing.T) {
	plain := NewIdentifier(TypeOf[string]())
	named := NewIdentifier(TypeOf[string](), Named("db"))
	other := NewIdentifier(TypeOf[int](), Named("db"))

	assert.False(t, plain.Equal(named))
	assert.False(t, named.Equal(other))
	assert.NotEqual(t, plain.Key(), named.Key())
	assert.False(t, plain.Tagged())
	assert.True(t, named.Tagged())
}

func TestIdentifier_SeparatorsInTags(t *testing.T) {
	tests := []struct {
		name string
		a, b []Tag
	}{
		{name: "comma in value", a: []Tag{NewTag("a", "b,c")}, b: []Tag{NewTag("a", "b"), NewTag("c", "")}},
		{name: "equals in kind", a: []Tag{NewTag("a=b", "")}, b: []Tag{NewTag("a", "b")}},
		{name: "equals in value", a: []Tag{NewTag("a", "b=c")}, b: []Tag{NewTag("a=b", "c")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewIdentifier(TypeOf[string](), tt.a...)
			b := NewIdentifier(TypeOf[string](), tt.b...)
			assert.False(t, a.Equal(b))
			assert.NotEqual(t, a.Key(), b.Key())
		})
	}
}

func TestIdentifier_TagsIsCopy(t *testing.T) {
	id := NewIdentifier(TypeOf[string](), Named("db"))
	tags := id.Tags()
	tags[0] = Named("changed")

	tag, ok := id.Tag(TagKindName)
	require.True(t, ok)
	assert.Equal(t, "db", tag.Value)
	assert.True(t, id.HasTag(TagKindName))
	assert.False(t, id.HasTag("config"))
}

func TestIdentifier_String(t *testing.T) {
	assert.Equal(t, "string", NewIdentifier(TypeOf[string]()).String())
	assert.Equal(t, "string[config=port,name=db]", NewIdentifier(TypeOf[string](), Named("db"), NewTag("config", "port")).String())
}

func TestParseTag(t *testing.T) {
	tags, err := ParseTag("cache")
	require.NoError(t, err)
	assert.Equal(t, []Tag{Named("cache")}, tags)

	tags, err = ParseTag(",config=server.port")
	require.NoError(t, err)
	assert.Equal(t, []Tag{NewTag("config", "server.port")}, tags)

	tags, err = ParseTag("primary, readonly ,alltypes=Repository")
	require.NoError(t, err)
	assert.Equal(t, []Tag{Named("primary"), NewTag("readonly", ""), NewTag("alltypes", "Repository")}, tags)

	tags, err = ParseTag("")
	require.NoError(t, err)
	assert.Empty(t, tags)

	_, err = ParseTag(",=oops")
	assert.Error(t, err)
}
