package searchindex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

const (
	jsPrefix = "Search.setIndex("
	jsSuffix = ")"
)

// Parse decodes a searchindex.js payload. Both the JavaScript wrapper
// Search.setIndex({...}) and bare JSON are accepted. The result is
// validated; every failure wraps ErrMalformedIndex.
func Parse(data []byte) (*Index, error) {
	payload, err := unwrap(data)
	if err != nil {
		return nil, err
	}
	idx := &Index{}
	if err := json.Unmarshal(payload, idx); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedIndex, err)
	}
	if idx.DocNames == nil {
		return nil, fmt.Errorf("%w: missing docnames", apperrors.ErrMalformedIndex)
	}
	idx.fill()
	if err := idx.Validate(); err != nil {
		return nil, err
	}
	return idx, nil
}

func unwrap(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	data = bytes.TrimSpace(data)
	data = bytes.TrimSpace(bytes.TrimSuffix(data, []byte(";")))
	if bytes.HasPrefix(data, []byte(jsPrefix)) {
		if !bytes.HasSuffix(data, []byte(jsSuffix)) {
			return nil, fmt.Errorf("%w: unterminated %s call", apperrors.ErrMalformedIndex, strings.TrimSuffix(jsPrefix, "("))
		}
		data = data[len(jsPrefix) : len(data)-len(jsSuffix)]
	}
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("%w: payload is not a JSON object", apperrors.ErrMalformedIndex)
	}
	return data, nil
}

// Load reads and parses an index file. Files ending in .gz are
// decompressed first.
func Load(path string) (*Index, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	idx, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return idx, nil
}

// ReadFile returns the raw, decompressed contents of an index file.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening search index: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrMalformedIndex, path, err)
		}
		defer zr.Close()
		r = zr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Encode renders the index in the form the generator writes, ready to be
// served as searchindex.js.
func (idx *Index) Encode() ([]byte, error) {
	out := *idx
	out.fill()

	var buf bytes.Buffer
	buf.WriteString(jsPrefix)
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&out); err != nil {
		return nil, fmt.Errorf("encoding search index: %w", err)
	}
	buf.Truncate(buf.Len() - 1) // Encoder appends '\n'
	buf.WriteString(jsSuffix)
	return buf.Bytes(), nil
}

// fill replaces nil collections with empty ones so encoded indexes never
// carry null tables.
func (idx *Index) fill() {
	if idx.DocNames == nil {
		idx.DocNames = []string{}
	}
	if idx.Filenames == nil {
		idx.Filenames = []string{}
	}
	if idx.Titles == nil {
		idx.Titles = []string{}
	}
	if idx.Terms == nil {
		idx.Terms = map[string]Postings{}
	}
	if idx.TitleTerms == nil {
		idx.TitleTerms = map[string]Postings{}
	}
	if idx.Objects == nil {
		idx.Objects = ObjectTable{}
	}
	if idx.ObjTypes == nil {
		idx.ObjTypes = map[int]string{}
	}
	if idx.ObjNames == nil {
		idx.ObjNames = map[int]ObjName{}
	}
	if idx.EnvVersion == nil {
		idx.EnvVersion = map[string]int{}
	}
	if idx.AllTitles == nil {
		idx.AllTitles = map[string][]TitleRef{}
	}
	if idx.IndexEntries == nil {
		idx.IndexEntries = map[string][]EntryRef{}
	}
}
