package named

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := New[*int]("计数器")
	a, b := new(int), new(int)

	require.NoError(t, r.Add("a", a))
	require.NoError(t, r.Add("b", b))
	assert.Error(t, r.Add("a", b))
	assert.True(t, r.Has("a"))

	got, err := r.Get("b")
	require.NoError(t, err)
	assert.Same(t, b, got)
	_, err = r.Get("c")
	assert.Error(t, err)

	var seen []string
	r.Each(func(name string, _ *int) { seen = append(seen, name) })
	assert.Equal(t, []string{"a", "b"}, seen)

	var closed []*int
	err = r.CloseAll(func(c *int) error {
		closed = append(closed, c)
		if c == a {
			return errors.New("busy")
		}
		return nil
	})
	assert.ErrorContains(t, err, "busy")
	assert.Equal(t, []*int{b, a}, closed)
	assert.Empty(t, r.Names())
}
