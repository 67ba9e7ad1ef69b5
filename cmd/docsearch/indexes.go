package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/registry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

// indexFlags selects the indexes a command reads, either from -i flags or
// from a service config file.
type indexFlags struct {
	specs      []string
	urlRoot    string
	builder    string
	configPath string
}

func (f *indexFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.specs, "index", "i", nil, "index as name=path or path (repeatable)")
	cmd.Flags().StringVar(&f.urlRoot, "url-root", "", "prefix for result links")
	cmd.Flags().StringVar(&f.builder, "builder", "html", "link layout: html or dirhtml")
	cmd.Flags().StringVar(&f.configPath, "config", "", "service config file supplying indexes and scorer weights")
}

func (f *indexFlags) load(ctx context.Context) (*registry.Registry, ranker.Scorer, error) {
	scorer := ranker.DefaultScorer()
	var sources []config.IndexSource
	if f.configPath != "" {
		cfg, err := config.Load(f.configPath)
		if err != nil {
			return nil, scorer, err
		}
		sources = cfg.Search.Indexes
		scorer = ranker.FromConfig(cfg.Search.Scorer)
	}
	switch f.builder {
	case "", "html", "dirhtml":
	default:
		return nil, scorer, fmt.Errorf("unknown builder %q", f.builder)
	}
	for _, spec := range f.specs {
		src, err := config.ParseIndexFlag(spec)
		if err != nil {
			return nil, scorer, err
		}
		src.URLRoot = f.urlRoot
		src.Builder = f.builder
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return nil, scorer, errors.New("no indexes given: use -i name=path or --config")
	}
	reg := registry.New(sources)
	if err := reg.Load(ctx); err != nil {
		return nil, scorer, err
	}
	return reg, scorer, nil
}
