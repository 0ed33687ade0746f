package palette

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssign_CollisionFreeUpToPaletteSize(t *testing.T) {
	a := New(nil)
	seen := map[string]bool{}
	for i := 0; i < a.Size(); i++ {
		c := a.Assign(fmt.Sprintf("p%d", i))
		require.False(t, seen[c], "color %s handed out twice", c)
		seen[c] = true
	}
	assert.Equal(t, a.Size(), a.Observed())
}

func TestAssign_StableAndCyclic(t *testing.T) {
	a := New([]string{"red", "blue"})

	assert.Equal(t, "red", a.Assign("a"))
	assert.Equal(t, "blue", a.Assign("b"))
	assert.Equal(t, "red", a.Assign("c"))

	// repeat lookups never move an id
	assert.Equal(t, "blue", a.Assign("b"))
	assert.Equal(t, "red", a.Assign("a"))
	assert.Equal(t, 3, a.Observed())

	c, ok := a.Lookup("c")
	require.True(t, ok)
	assert.Equal(t, "red", c)

	_, ok = a.Lookup("zzz")
	assert.False(t, ok)
}

func TestNew_CopiesPalette(t *testing.T) {
	colors := []string{"red"}
	a := New(colors)
	colors[0] = "green"
	assert.Equal(t, "red", a.Assign("a"))
}
