package searchindex

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

const fixture = "testdata/qnetvo_searchindex.js"

func loadFixture(t testing.TB) *Index {
	t.Helper()
	idx, err := Load(fixture)
	require.NoError(t, err)
	return idx
}

func TestLoadFixture(t *testing.T) {
	idx := loadFixture(t)

	assert.Equal(t, 19, idx.DocCount())
	assert.Len(t, idx.Terms, 1177)
	assert.Len(t, idx.TitleTerms, 77)
	assert.Equal(t, 68, idx.ObjectCount())
	assert.Len(t, idx.AllTitles, 52)
	assert.Len(t, idx.IndexEntries, 68)

	assert.Equal(t, Postings{5, 7}, idx.Terms["chsh"])
	assert.Equal(t, Postings{6}, idx.TitleTerms["chsh"])
	assert.Equal(t, "py:function", idx.ObjTypes[1])
	assert.Equal(t, ObjName{Domain: "py", Role: "class", Label: "Python class"}, idx.ObjNames[0])
	assert.Equal(t, 4, idx.EnvVersion["sphinx.domains.python"])

	assert.Equal(t, []TitleRef{{Doc: 2}, {Doc: 7}, {Doc: 15}}, idx.AllTitles["Contents:"])
	refs := idx.IndexEntries["behavior_fn() (in module qnetvo)"]
	require.Len(t, refs, 1)
	assert.Equal(t, 1, refs[0].Doc)
	assert.Equal(t, "qnetvo.behavior_fn", refs[0].Anchor)
	assert.True(t, refs[0].Main, "two-field entries count as main")
}

func TestDocLookup(t *testing.T) {
	idx := loadFixture(t)

	d, ok := idx.Doc(12)
	require.True(t, ok)
	assert.Equal(t, Document{ID: 12, DocName: "index", Filename: "index.rst", Title: "qNetVO: The Quantum Network Variational Optimizer"}, d)

	_, ok = idx.Doc(19)
	assert.False(t, ok)

	id, ok := idx.FindDoc("cost/nonlocality_witnesses/chsh_inequality")
	require.True(t, ok)
	assert.Equal(t, 6, id)
	_, ok = idx.FindDoc("missing")
	assert.False(t, ok)

	assert.Len(t, idx.Documents(), 19)
}

func TestResolveObject(t *testing.T) {
	idx := loadFixture(t)

	refs := idx.ObjectsByName("qnetvo.gradient_descent")
	require.Len(t, refs, 1)
	ref := refs[0]
	assert.Equal(t, "qnetvo.gradient_descent", ref.FullName)
	assert.Equal(t, "qnetvo.gradient_descent", ref.Anchor)
	assert.Equal(t, "py:function", ref.Kind)
	assert.Equal(t, "Python function", ref.Label)
	assert.Equal(t, "optimization", ref.DocName)
	assert.Equal(t, 13, ref.Doc)

	refs = idx.ObjectsByName("QNETVO.NETWORKANSATZ")
	require.Len(t, refs, 1)
	assert.Equal(t, "py:class", refs[0].Kind)
	assert.Equal(t, 16, refs[0].Doc)

	refs = idx.ObjectsByName("collect_wires")
	require.Len(t, refs, 1)
	assert.Equal(t, "qnetvo.NetworkAnsatz.collect_wires", refs[0].FullName)
	assert.Equal(t, "py:method", refs[0].Kind)

	assert.Empty(t, idx.ObjectsByName("qnetvo.no_such_thing"))
	assert.Empty(t, idx.ObjectsByName("  "))
}

func TestResolveObjectAnchorForms(t *testing.T) {
	idx := &Index{
		DocNames:  []string{"api"},
		Filenames: []string{"api.rst"},
		Titles:    []string{"API"},
		ObjTypes:  map[int]string{0: "std:envvar"},
		ObjNames:  map[int]ObjName{0: {Domain: "std", Role: "envvar", Label: "environment variable"}},
	}
	assert.Equal(t, "envvar-pkg.HOME", idx.ResolveObject("pkg", Object{Name: "HOME", Anchor: "-"}).Anchor)
	assert.Equal(t, "home-var", idx.ResolveObject("pkg", Object{Name: "HOME", Anchor: "home-var"}).Anchor)
	assert.Equal(t, "HOME", idx.ResolveObject("", Object{Name: "HOME"}).Anchor)
}

func TestEncodeRoundTrip(t *testing.T) {
	idx := loadFixture(t)

	data, err := idx.Encode()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("Search.setIndex({\"docnames\":")))
	assert.True(t, bytes.HasSuffix(data, []byte("})")))

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, idx, again)
}

func TestEncodeEmptyIndexHasNoNullTables(t *testing.T) {
	data, err := (&Index{}).Encode()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "null")

	idx, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.DocCount())
}

func TestParseBareJSONAndLegacyObjects(t *testing.T) {
	idx, err := Parse([]byte(`  {"docnames":["a","b"],"filenames":["a.rst","b.rst"],"titles":["A","B"],
		"terms":{"foo":1,"bar":[0,1]},"titleterms":{},
		"objects":{"mod":{"zeta":[1,0,1,""],"alpha":[0,0,0,"-"]}},
		"objtypes":{"0":"py:function"},"objnames":{"0":["py","function","Python function"]}};`))
	require.NoError(t, err)
	assert.Equal(t, Postings{1}, idx.Terms["foo"])
	require.Len(t, idx.Objects["mod"], 2)
	assert.Equal(t, Object{Doc: 0, Type: 0, Priority: 0, Anchor: "-", Name: "alpha"}, idx.Objects["mod"][0])
	assert.Equal(t, "function-mod.alpha", idx.ObjectsByName("mod.alpha")[0].Anchor)
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"not an object", "Search.setIndex([1,2])"},
		{"unterminated", "Search.setIndex({\"docnames\":[]}"},
		{"bad json", "Search.setIndex({\"docnames\":[}"},
		{"missing docnames", "{}"},
		{"ragged arrays", `{"docnames":["a"],"filenames":[],"titles":["A"]}`},
		{"posting out of range", `{"docnames":["a"],"filenames":["a"],"titles":["A"],"terms":{"x":[0,3]}}`},
		{"unsorted postings", `{"docnames":["a","b"],"filenames":["a","b"],"titles":["A","B"],"terms":{"x":[1,0]}}`},
		{"undeclared objtype", `{"docnames":["a"],"filenames":["a"],"titles":["A"],"objects":{"m":[[0,7,1,"","f"]]}}`},
		{"short object", `{"docnames":["a"],"filenames":["a"],"titles":["A"],"objects":{"m":[[0,0,1,""]]}}`},
		{"bad title ref", `{"docnames":["a"],"filenames":["a"],"titles":["A"],"alltitles":{"T":[[4,null]]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrMalformedIndex), "got %v", err)
		})
	}
}

func TestLoadGzip(t *testing.T) {
	raw, err := os.ReadFile(fixture)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "searchindex.js.gz")
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err = zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	idx, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 19, idx.DocCount())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.js"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func BenchmarkParse(b *testing.B) {
	raw, err := os.ReadFile(fixture)
	require.NoError(b, err)
	b.SetBytes(int64(len(raw)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Parse(raw); err != nil {
			b.Fatal(err)
		}
	}
}
