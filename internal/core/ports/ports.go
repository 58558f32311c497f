package ports

import (
	"context"

	"github.com/pfiers/compose-apps-exporter/internal/core/domain"
)

// AppLocator expands glob patterns into compose definition file paths.
// Matched directories resolve to the conventional definition file inside
// them; overlapping globs may yield duplicates, which are kept.
type AppLocator interface {
	Locate(globs []string) ([]string, error)
}

// RuntimeInspector reads the declared topology and the live container state
// of one compose application. This interface allows us to swap the docker
// compose CLI for another backend without changing the derivation logic.
type RuntimeInspector interface {
	DeclaredConfig(ctx context.Context, definitionPath string) (domain.ApplicationDefinition, error)
	RunningContainers(ctx context.Context, definitionPath string) ([]domain.RuntimeContainer, error)
}

// MetricsCollector derives the full metrics page for one scrape.
type MetricsCollector interface {
	Collect(ctx context.Context) (string, error)
}
