// Package compose implements ports.RuntimeInspector by shelling out to the
// docker compose CLI. Each invocation runs under a deadline; a hung docker
// daemon fails the scrape with a TimeoutError instead of blocking forever.
package compose

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/pfiers/compose-apps-exporter/internal/core/domain"
)

// ExitError reports a docker compose invocation that ran but exited
// nonzero. It carries everything an operator needs to diagnose the failure
// without re-running the command by hand.
type ExitError struct {
	DefinitionPath string
	Subcommand     string
	ExitCode       int
	Stderr         string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("`docker compose %s` for %s failed with exit code %d: %s",
		e.Subcommand, e.DefinitionPath, e.ExitCode, e.Stderr)
}

// TimeoutError reports a docker compose invocation that exceeded the
// configured command timeout, distinct from a nonzero exit.
type TimeoutError struct {
	DefinitionPath string
	Subcommand     string
	Timeout        time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("`docker compose %s` for %s timed out after %s",
		e.Subcommand, e.DefinitionPath, e.Timeout)
}

type Adapter struct {
	binary  string
	timeout time.Duration
}

// NewAdapter returns an adapter invoking the `docker` binary from PATH,
// bounding every call by timeout.
func NewAdapter(timeout time.Duration) *Adapter {
	return &Adapter{binary: "docker", timeout: timeout}
}

// composeConfig is the subset of `docker compose config` output we consume.
// The output carries far more fields; the ones below are required and their
// absence is an error rather than a silently defaulted value.
type composeConfig struct {
	Name     string                    `yaml:"name"`
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	ContainerName string `yaml:"container_name"`
}

// psContainer is the subset of `docker compose ps --format json` output we
// consume. Health stays empty for containers without a health check.
type psContainer struct {
	Name   string `json:"Name"`
	State  string `json:"State"`
	Health string `json:"Health"`
}

// DeclaredConfig runs `docker compose config` for the definition file and
// parses the normalized project name and service -> container name mapping.
func (a *Adapter) DeclaredConfig(ctx context.Context, definitionPath string) (domain.ApplicationDefinition, error) {
	out, err := a.run(ctx, definitionPath, "config")
	if err != nil {
		return domain.ApplicationDefinition{}, err
	}
	def, err := parseDeclaredConfig(out)
	if err != nil {
		return domain.ApplicationDefinition{}, fmt.Errorf("parse `docker compose config` output for %s: %w", definitionPath, err)
	}
	return def, nil
}

// RunningContainers runs `docker compose ps --format json` for the
// definition file and parses the reported containers.
func (a *Adapter) RunningContainers(ctx context.Context, definitionPath string) ([]domain.RuntimeContainer, error) {
	out, err := a.run(ctx, definitionPath, "ps", "--format", "json")
	if err != nil {
		return nil, err
	}
	containers, err := parseRunningContainers(out)
	if err != nil {
		return nil, fmt.Errorf("parse `docker compose ps` output for %s: %w", definitionPath, err)
	}
	return containers, nil
}

func (a *Adapter) run(ctx context.Context, definitionPath string, args ...string) ([]byte, error) {
	subcommand := args[0]
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	argv := append([]string{"compose", "-f", definitionPath}, args...)
	cmd := exec.CommandContext(ctx, a.binary, argv...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		return nil, &TimeoutError{DefinitionPath: definitionPath, Subcommand: subcommand, Timeout: a.timeout}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, &ExitError{
			DefinitionPath: definitionPath,
			Subcommand:     subcommand,
			ExitCode:       exitErr.ExitCode(),
			Stderr:         strings.TrimSpace(stderr.String()),
		}
	}
	return nil, fmt.Errorf("execute `%s compose %s` for %s (is docker installed?): %w",
		a.binary, subcommand, definitionPath, err)
}

func parseDeclaredConfig(out []byte) (domain.ApplicationDefinition, error) {
	var cfg composeConfig
	if err := yaml.Unmarshal(out, &cfg); err != nil {
		return domain.ApplicationDefinition{}, err
	}
	if cfg.Name == "" {
		return domain.ApplicationDefinition{}, fmt.Errorf("missing top-level project name")
	}
	services := make(map[string]string, len(cfg.Services))
	for serviceName, service := range cfg.Services {
		if service.ContainerName == "" {
			return domain.ApplicationDefinition{}, fmt.Errorf("service %q has no container_name", serviceName)
		}
		services[serviceName] = service.ContainerName
	}
	return domain.ApplicationDefinition{Name: cfg.Name, Services: services}, nil
}

// parseRunningContainers accepts both historical output shapes: a single
// JSON array (compose < 2.21) and one JSON object per line (2.21+).
func parseRunningContainers(out []byte) ([]domain.RuntimeContainer, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var rows []psContainer
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, err
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		for dec.More() {
			var row psContainer
			if err := dec.Decode(&row); err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
	}

	containers := make([]domain.RuntimeContainer, 0, len(rows))
	for i, row := range rows {
		if row.Name == "" {
			return nil, fmt.Errorf("container #%d has no Name field", i)
		}
		if row.State == "" {
			return nil, fmt.Errorf("container %q has no State field", row.Name)
		}
		containers = append(containers, domain.RuntimeContainer{
			Name:   row.Name,
			State:  row.State,
			Health: row.Health,
		})
	}
	return containers, nil
}
