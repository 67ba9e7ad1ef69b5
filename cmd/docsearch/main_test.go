package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searchindex"
)

const fixturePath = "../../internal/searchindex/testdata/qnetvo_searchindex.js"

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestQueryTable(t *testing.T) {
	out, err := run(t, "", "query", "-i", "qnetvo="+fixturePath, "--url-root", "https://qnetvo.example.org/", "CHSH", "inequality")
	require.NoError(t, err)
	assert.Contains(t, out, "https://qnetvo.example.org/cost/nonlocality_witnesses/chsh_inequality.html#chsh-inequality")
	assert.Contains(t, out, "101")
	assert.Contains(t, out, "6 of 6 results")
}

func TestQueryJSON(t *testing.T) {
	out, err := run(t, "", "query", "-i", "qnetvo="+fixturePath, "--json", "-n", "2", "optimization")
	require.NoError(t, err)
	var res executor.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Results, 2)
	assert.Equal(t, "Optimization", res.Results[0].Title)
	assert.Equal(t, 101, res.Results[0].Score)
}

func TestQueryNoResults(t *testing.T) {
	out, err := run(t, "", "query", "-i", fixturePath, "zzzzqqq")
	require.NoError(t, err)
	assert.Contains(t, out, `no results for "zzzzqqq"`)
}

func TestQueryRequiresIndex(t *testing.T) {
	_, err := run(t, "", "query", "network")
	assert.ErrorContains(t, err, "no indexes given")

	_, err = run(t, "", "query", "-i", fixturePath, "--builder", "epub", "network")
	assert.ErrorContains(t, err, "unknown builder")
}

func TestObject(t *testing.T) {
	out, err := run(t, "", "object", "-i", "qnetvo="+fixturePath, "qnetvo.NetworkAnsatz")
	require.NoError(t, err)
	assert.Contains(t, out, "py:class")
	assert.Contains(t, out, "quantum_networks/network_ansatzes.html#qnetvo.NetworkAnsatz")

	_, err = run(t, "", "object", "-i", "qnetvo="+fixturePath, "qnetvo.Missing")
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	r, err := inspect(fixturePath)
	require.NoError(t, err)
	assert.Equal(t, 19, r.Documents)
	assert.Equal(t, 1177, r.Terms)
	assert.Equal(t, 77, r.TitleTerms)
	assert.Equal(t, 68, r.Objects)
	assert.Equal(t, 52, r.Titles)
	assert.Equal(t, 68, r.IndexEntries)

	kinds := 0
	for _, n := range r.ObjectKinds {
		kinds += n
	}
	assert.Equal(t, 68, kinds)

	out, err := run(t, "", "inspect", fixturePath)
	require.NoError(t, err)
	assert.Contains(t, out, "1177")
	assert.Contains(t, out, "py:function")
	assert.Contains(t, out, "valid")
}

func TestInspectRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "searchindex.js")
	require.NoError(t, os.WriteFile(path, []byte(`Search.setIndex({"titles": [}`), 0o644))
	_, err := run(t, "", "inspect", path)
	assert.Error(t, err)
}

const pages = `{"docname":"index","title":"Toolkit","body":"Variational quantum network optimization","sections":[{"title":"Getting started","anchor":"getting-started"}]}

{"docname":"api/nodes","title":"Network Nodes","body":"Prepare and measure nodes","objects":[{"fullName":"toolkit.PrepareNode","type":"py:class","priority":1}]}
`

func TestBuildThenQuery(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "pages.jsonl")
	require.NoError(t, os.WriteFile(src, []byte(pages), 0o644))

	out, err := run(t, "", "build", "--out", dir, "--gzip", src)
	require.NoError(t, err)
	assert.Contains(t, out, "2 documents")

	artifactPath := filepath.Join(dir, "searchindex.js")
	idx, err := searchindex.Load(artifactPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"api/nodes", "index"}, idx.DocNames)
	assert.FileExists(t, artifactPath+".gz")

	out, err = run(t, "", "object", "-i", "toolkit="+artifactPath, "--builder", "dirhtml", "PrepareNode")
	require.NoError(t, err)
	assert.Contains(t, out, "api/nodes/#toolkit.PrepareNode")
}

func TestBuildFromStdinReportsBadLine(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, `{"docname":"ok","title":"Fine"}`+"\n"+`{"docname":"../bad","title":"Bad"}`+"\n", "build", "--out", dir, "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stdin:2")
	assert.NoFileExists(t, filepath.Join(dir, "searchindex.js"))
}

func TestBench(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("q") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"total_hits":1}`))
	}))
	defer srv.Close()

	out, err := run(t, "", "bench", "--url", srv.URL, "-c", "2", "-d", "200ms", "-q", "network")
	require.NoError(t, err)
	assert.Positive(t, hits.Load())
	assert.Contains(t, out, "status 200")
	assert.Contains(t, out, "latency p99")
}

func TestBenchPercentile(t *testing.T) {
	assert.Zero(t, benchPercentile(nil, 50))
}

func TestKeygen(t *testing.T) {
	out, err := run(t, "", "keygen")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	key := strings.TrimSpace(strings.TrimPrefix(lines[0], "key:"))
	hash := strings.TrimSpace(strings.TrimPrefix(lines[1], "hash:"))

	again, err := run(t, "", "keygen", "--hash", key)
	require.NoError(t, err)
	assert.Equal(t, hash, strings.TrimSpace(again))
}
