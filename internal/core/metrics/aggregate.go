package metrics

import (
	"context"
	"fmt"

	"github.com/pfiers/compose-apps-exporter/internal/core/ports"
)

// Aggregator derives the full metrics page for one scrape: it locates every
// compose definition, maps each application and appends the summary gauge.
// It holds no mutable state, so concurrent scrapes need no synchronization;
// each call reads fresh state from the filesystem and the runtime.
type Aggregator struct {
	locator   ports.AppLocator
	inspector ports.RuntimeInspector
	globs     []string
}

func NewAggregator(locator ports.AppLocator, inspector ports.RuntimeInspector, globs []string) *Aggregator {
	return &Aggregator{locator: locator, inspector: inspector, globs: globs}
}

// Collect implements ports.MetricsCollector. A failure for any single
// application fails the whole scrape: an incomplete metrics page would
// silently hide the broken application from the scraper.
func (a *Aggregator) Collect(ctx context.Context) (string, error) {
	paths, err := a.locator.Locate(a.globs)
	if err != nil {
		return "", fmt.Errorf("locate compose definitions: %w", err)
	}

	var lines []string
	for _, path := range paths {
		def, err := a.inspector.DeclaredConfig(ctx, path)
		if err != nil {
			return "", err
		}
		containers, err := a.inspector.RunningContainers(ctx, path)
		if err != nil {
			return "", err
		}
		appLines, err := MapApplication(def, containers)
		if err != nil {
			return "", fmt.Errorf("map metrics for %s: %w", path, err)
		}
		lines = append(lines, appLines...)
	}

	// Duplicate paths from overlapping globs are processed twice on purpose
	// and each occurrence counts here.
	lines = append(lines, fmt.Sprintf("compose_apps_nbro_configs %d", len(paths)))
	return Render(lines), nil
}
