package annotate

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEdits(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tempDir, "qnames.tsv")
	content := "r1\tNM:5\n" +
		"r2\t\t16\n" +
		"r3\n" +
		"r4\tCB:AAA\r\n" +
		"r1\tNM:9\n"
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))

	edits, err := LoadEdits(path)
	require.NoError(t, err)
	assert.Equal(t, Edits{
		"r1": "NM:9", // last write wins
		"r2": "\t16",
		"r3": "",
		"r4": "CB:AAA",
	}, edits)
}

func TestLoadEditsEmpty(t *testing.T) {
	edits, err := loadEdits(strings.NewReader(""), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, len(edits))
}

func TestLoadEditsMissingFile(t *testing.T) {
	_, err := LoadEdits("/nonexistent/qnames.tsv")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "qnames.tsv")
}
