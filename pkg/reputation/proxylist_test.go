package reputation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFormats(t *testing.T) {
	l, err := Read(strings.NewReader(`# IPsum (level 3)
185.220.101.7	9
185.220.101.200	4

45.133.1.0/24
2001:db8:1:2::99
not-an-ip
`))
	require.NoError(t, err)

	// Both 185.220.101.x entries share a prefix.
	assert.Equal(t, 3, l.Count())
	assert.True(t, l.Contains("185.220.101.33"))
	assert.True(t, l.Contains("45.133.1.250"))
	assert.True(t, l.Contains("2001:db8:1:2::1"))
	assert.False(t, l.Contains("185.220.102.1"))
	assert.False(t, l.Contains(""))
}

func TestAddRemove(t *testing.T) {
	l := NewProxyList("203.0.113.7")
	assert.True(t, l.Contains("203.0.113.200"))

	l.Remove("203.0.113.1")
	assert.False(t, l.Contains("203.0.113.7"))

	l.Add("garbage")
	assert.Zero(t, l.Count())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ipsum.txt")
	require.NoError(t, os.WriteFile(path, []byte("198.51.100.4\t3\n"), 0o644))

	l, err := Load(path)
	require.NoError(t, err)
	assert.True(t, l.Contains("198.51.100.9"))

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
