package tour

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSceneBaseName(t *testing.T) {
	cases := map[string]string{
		"Living Room.jpg":        "Living-Room",
		"/tmp/pics/roof.top.png": "roof.top",
		"  spaced   out .jpeg":   "spaced-out",
		".jpg":                   "scene",
		"":                       "scene",
		"noext":                  "noext",
	}
	for in, want := range cases {
		require.Equal(t, want, SceneBaseName(in), "input %q", in)
	}
}

func TestUniqueSceneID(t *testing.T) {
	taken := map[string]bool{"hall": true, "hall-1": true}
	id := UniqueSceneID("hall", func(s string) bool { return taken[s] })
	require.Equal(t, "hall-2", id)

	id = UniqueSceneID("yard", func(s string) bool { return taken[s] })
	require.Equal(t, "yard", id)
}

func TestNewHotspotID(t *testing.T) {
	a, b := NewHotspotID(), NewHotspotID()
	require.True(t, strings.HasPrefix(a, "hs-"))
	require.NotEqual(t, a, b)
}
