package xmltree

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func child(n *Node, name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestParseBuildsTree(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<export version="2">
  <!-- comment -->
  <communications>
    <studyName>PBS</studyName>
    <formNumber></formNumber>
    <note><![CDATA[a < b]]></note>
  </communications>
</export>`

	root, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "export", root.Name)

	require.Len(t, root.Children, 1)
	form := root.Children[0]
	assert.Equal(t, "communications", form.Name)
	assert.False(t, form.IsLeaf())
	require.Len(t, form.Children, 3)

	study := child(form, "studyName")
	require.NotNil(t, study)
	assert.True(t, study.IsLeaf())
	assert.True(t, study.HasText)
	assert.Equal(t, "PBS", study.Text)
	assert.Equal(t, 5, study.Line)

	number := child(form, "formNumber")
	require.NotNil(t, number)
	assert.False(t, number.HasText)

	assert.Equal(t, "a < b", child(form, "note").Text)
	assert.Nil(t, child(form, "missing"))
}

func TestParseFailures(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"whitespace":     "  \n\t",
		"truncated":      "<export><communications><studyName>PBS</studyName>",
		"mismatched":     "<export><a></b></export>",
		"multiple roots": "<a></a><b></b>",
		"trailing text":  "<a></a>garbage",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParsing), "got %v", err)
		})
	}
}

func TestParseSyntaxErrorCarriesLine(t *testing.T) {
	_, err := Parse([]byte("<export>\n<a>\n</b>\n</export>"))
	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 3, se.Line)
	assert.Contains(t, se.Error(), "line 3")
}

func TestParseRejectsNonXMLContent(t *testing.T) {
	_, err := Parse([]byte("study,site\nPBS,Some Site\n"))
	assert.True(t, errors.Is(err, ErrInvalidFileType))
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadFile(filepath.Join(dir, "missing.xml"))
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	_, err = ReadFile(dir)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	csv := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(csv, []byte("<export/>"), 0o600))
	_, err = ReadFile(csv)
	assert.True(t, errors.Is(err, ErrInvalidFileType), "got %v", err)

	empty := filepath.Join(dir, "empty.xml")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = ReadFile(empty)
	assert.True(t, errors.Is(err, ErrParsing), "got %v", err)

	good := filepath.Join(dir, "export.XML")
	require.NoError(t, os.WriteFile(good, []byte("\xEF\xBB\xBF<export><a>1</a></export>"), 0o600))
	root, err := ReadFile(good)
	require.NoError(t, err)
	assert.Equal(t, "1", child(root, "a").Text)
}
