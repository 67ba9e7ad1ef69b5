package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/artifact"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/validator"
)

const maxLineBytes = 4 << 20

// readDocuments adds every JSON-lines document in r to mem. Blank lines
// are skipped; the first invalid document stops the build.
func readDocuments(name string, r io.Reader, mem *index.MemoryIndex) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	n, line := 0, 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var doc index.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return n, fmt.Errorf("%s:%d: %w", name, line, err)
		}
		validator.Normalize(&doc)
		if err := validator.ValidateDocument(&doc); err != nil {
			return n, fmt.Errorf("%s:%d: %w", name, line, err)
		}
		mem.AddDocument(doc)
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("reading %s: %w", name, err)
	}
	return n, nil
}

func newBuildCmd() *cobra.Command {
	var (
		out      string
		name     string
		withGzip bool
	)
	cmd := &cobra.Command{
		Use:   "build --out <dir> <documents.jsonl>...",
		Short: "Build a searchindex.js from JSON-lines documents (\"-\" reads stdin)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mem := index.NewMemoryIndex()
			total := 0
			for _, path := range args {
				var n int
				var err error
				if path == "-" {
					n, err = readDocuments("stdin", cmd.InOrStdin(), mem)
				} else {
					n, err = readFile(path, mem)
				}
				if err != nil {
					return err
				}
				total += n
			}
			snap := mem.Snapshot()
			info, err := artifact.NewWriter(out, name, withGzip).Write(snap)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d documents (%d read), %d terms, %d objects, sha256 %s\n",
				info.Path, snap.DocCount(), total, len(snap.Terms), snap.ObjectCount(), info.Checksum)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", ".", "output directory")
	cmd.Flags().StringVar(&name, "name", "searchindex.js", "artifact file name")
	cmd.Flags().BoolVar(&withGzip, "gzip", false, "also write a .gz copy")
	return cmd
}

func readFile(path string, mem *index.MemoryIndex) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return readDocuments(path, f, mem)
}
