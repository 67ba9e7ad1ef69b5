package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/artifact"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searchindex"
)

type inspectReport struct {
	artifact.Info
	Documents    int            `json:"documents"`
	Terms        int            `json:"terms"`
	TitleTerms   int            `json:"titleTerms"`
	Objects      int            `json:"objects"`
	ObjectKinds  map[string]int `json:"objectKinds"`
	Titles       int            `json:"titles"`
	IndexEntries int            `json:"indexEntries"`
	EnvVersion   map[string]int `json:"envVersion,omitempty"`
}

func inspect(path string) (*inspectReport, error) {
	idx, info, err := artifact.Open(path)
	if err != nil {
		return nil, err
	}
	r := &inspectReport{
		Info:         info,
		Documents:    idx.DocCount(),
		Terms:        len(idx.Terms),
		TitleTerms:   len(idx.TitleTerms),
		Objects:      idx.ObjectCount(),
		ObjectKinds:  make(map[string]int),
		Titles:       len(idx.AllTitles),
		IndexEntries: len(idx.IndexEntries),
		EnvVersion:   idx.EnvVersion,
	}
	idx.EachObject(func(_ string, o searchindex.Object) bool {
		r.ObjectKinds[idx.ObjTypes[o.Type]]++
		return true
	})
	return r, nil
}

func newInspectCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <searchindex.js>",
		Short: "Validate an index and summarize its tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := inspect(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, r)
			}
			fmt.Fprintf(out, "%s (%d bytes, sha256 %s)\n", r.Path, r.Size, r.Checksum)
			t := newTable("TABLE", "ENTRIES")
			t.Row("documents", strconv.Itoa(r.Documents))
			t.Row("terms", strconv.Itoa(r.Terms))
			t.Row("title terms", strconv.Itoa(r.TitleTerms))
			t.Row("objects", strconv.Itoa(r.Objects))
			t.Row("section titles", strconv.Itoa(r.Titles))
			t.Row("index entries", strconv.Itoa(r.IndexEntries))
			fmt.Fprintln(out, t)

			if len(r.ObjectKinds) > 0 {
				kinds := make([]string, 0, len(r.ObjectKinds))
				for k := range r.ObjectKinds {
					kinds = append(kinds, k)
				}
				sort.Strings(kinds)
				kt := newTable("OBJECT KIND", "COUNT")
				for _, k := range kinds {
					kt.Row(k, strconv.Itoa(r.ObjectKinds[k]))
				}
				fmt.Fprintln(out, kt)
			}
			fmt.Fprintln(out, summaryStyle.Render("valid"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
