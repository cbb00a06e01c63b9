package geoip

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenWithoutDatabases(t *testing.T) {
	s, err := Open("", "")
	require.NoError(t, err)
	defer s.Close()

	_, _, err = s.LookupASN("203.0.113.7")
	assert.ErrorIs(t, err, ErrNoDatabase)

	_, err = s.Lookup("203.0.113.7")
	assert.ErrorIs(t, err, ErrNoDatabase)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "GeoLite2-City.mmdb"), "")
	assert.Error(t, err)

	_, err = Open("", filepath.Join(t.TempDir(), "GeoLite2-ASN.mmdb"))
	assert.Error(t, err)
}

func TestNilServiceIsSafe(t *testing.T) {
	var s *Service
	_, _, err := s.LookupASN("203.0.113.7")
	assert.ErrorIs(t, err, ErrNoDatabase)
}
