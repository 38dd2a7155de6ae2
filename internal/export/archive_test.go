package export

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteArchive(t *testing.T) {
	var buf bytes.Buffer
	err := WriteArchive(&buf, []Entry{
		{Name: "results/exam.json", Data: []byte(`{"file":"exam.pnp"}`)},
		{Name: "report.json", Data: []byte(`{"file":"report.zak"}`)},
	})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	// Directory prefixes are flattened.
	assert.Equal(t, "exam.json", zr.File[0].Name)
	assert.Equal(t, "report.json", zr.File[1].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"file":"exam.pnp"}`, string(data))
}

func TestJSONName(t *testing.T) {
	assert.Equal(t, "exam.json", JSONName("data/exam.pnp"))
	assert.Equal(t, "report.json", JSONName("report.zak"))
	assert.Equal(t, "noext.json", JSONName("noext"))
	assert.Equal(t, ".hidden.json", JSONName(".hidden"))
}
