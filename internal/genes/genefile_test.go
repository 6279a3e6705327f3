package genes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGeneFile(t *testing.T) {
	in := "entrez_id\tsymbol\ttype\tcytoband\taliases\n" +
		"673\tbraf\tprotein-coding\t7q34\tBRAF1|B-RAF1\n" +
		"\n" +
		"7157\tTP53\tprotein-coding\t17p13.1\t-\n"
	got, err := ParseGeneFile(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "BRAF", got[0].HugoSymbol)
	assert.Equal(t, []string{"BRAF1", "B-RAF1"}, got[0].Aliases)
	assert.Nil(t, got[1].Aliases)
}

func TestParseGeneFileErrors(t *testing.T) {
	_, err := ParseGeneFile(strings.NewReader(""))
	require.Error(t, err)
	_, err = ParseGeneFile(strings.NewReader("symbol\n"))
	require.ErrorContains(t, err, "entrez_id")
	_, err = ParseGeneFile(strings.NewReader("entrez_id\tsymbol\nabc\tX\n"))
	require.ErrorContains(t, err, "line 2")
}

func TestParseDisambiguation(t *testing.T) {
	d, err := ParseDisambiguation(strings.NewReader("# header\nfoo\t12\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(12), d["FOO"])
	_, err = ParseDisambiguation(strings.NewReader("foo\n"))
	require.Error(t, err)
	_, err = ParseDisambiguation(strings.NewReader("foo\tbar\n"))
	require.Error(t, err)
}
