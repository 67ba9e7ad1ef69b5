package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/project"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

// ReloadHandler consumes the indexer's IndexComplete events. A known
// project is reloaded; an unknown one is added with template's link
// settings and the event's artifact path. "{project}" in the template's
// URLRoot is replaced by the project name.
func (r *Registry) ReloadHandler(template config.IndexSource) kafka.MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		ev, err := kafka.DecodeJSON[indexer.IndexComplete](value)
		if err != nil {
			return err
		}
		if !project.ValidName(ev.Project) {
			return fmt.Errorf("%w: invalid project %q", kafka.ErrSkip, ev.Project)
		}
		if r.Has(ev.Project) {
			swapped, err := r.Reload(ctx, ev.Project)
			if err != nil {
				return fmt.Errorf("reloading %s: %w", ev.Project, err)
			}
			r.logger.Info("index-complete applied", "index", ev.Project, "swapped", swapped, "checksum", ev.Checksum)
			return nil
		}
		if ev.Path == "" {
			return fmt.Errorf("%w: index-complete for %s has no path", kafka.ErrSkip, ev.Project)
		}
		src := template
		src.Name = ev.Project
		src.Path = ev.Path
		src.URLRoot = strings.ReplaceAll(template.URLRoot, "{project}", ev.Project)
		if err := r.Add(ctx, src); err != nil {
			return fmt.Errorf("adding %s: %w", ev.Project, err)
		}
		r.logger.Info("index added from index-complete event", "index", ev.Project, "path", ev.Path)
		return nil
	}
}
