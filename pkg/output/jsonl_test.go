package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokaycavdar/go-vpnsense/pkg/models"
)

func TestJSONLWriterOneLinePerVerdict(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf)

	require.NoError(t, w.Write(&models.Verdict{ID: "a", TotalScore: 12, Threshold: 40}))
	require.NoError(t, w.Write(&models.Verdict{ID: "b", TotalScore: 55, Threshold: 40, IsVPN: true}))
	assert.Zero(t, buf.Len(), "nothing written before flush")
	require.NoError(t, w.Close())

	sc := bufio.NewScanner(&buf)
	var got []models.Verdict
	for sc.Scan() {
		var v models.Verdict
		require.NoError(t, json.Unmarshal(sc.Bytes(), &v))
		got = append(got, v)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[1].ID)
	assert.True(t, got[1].IsVPN)
}

func TestOpenJSONLAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verdicts.jsonl")

	for _, id := range []string{"first", "second"} {
		w, err := OpenJSONL(path)
		require.NoError(t, err)
		require.NoError(t, w.Write(&models.Verdict{ID: id}))
		require.NoError(t, w.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(data, []byte("\n")))
}
