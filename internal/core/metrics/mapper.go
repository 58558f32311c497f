// Package metrics turns declared compose topology plus live container state
// into Prometheus text-format gauge lines.
package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfiers/compose-apps-exporter/internal/core/domain"
)

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// MapApplication renders the one-hot state and health gauge lines for every
// service declared in def, matched against containers by exact container
// name. Services are iterated in sorted name order so the output is
// byte-deterministic. A runtime value outside the known taxonomy is an
// error, never silently folded into not_up.
func MapApplication(def domain.ApplicationDefinition, containers []domain.RuntimeContainer) ([]string, error) {
	serviceNames := make([]string, 0, len(def.Services))
	for name := range def.Services {
		serviceNames = append(serviceNames, name)
	}
	sort.Strings(serviceNames)

	var lines []string
	for _, serviceName := range serviceNames {
		containerName := def.Services[serviceName]
		container := findByName(containers, containerName)

		state := domain.StateNotUp
		health := domain.StateNotUp
		if container != nil {
			state = container.State
			if !domain.KnownState(state) {
				return nil, fmt.Errorf("container %q (service %q of %q) reports unknown state %q",
					containerName, serviceName, def.Name, state)
			}
			if container.Health == "" {
				health = domain.HealthNoCheck
			} else {
				health = container.Health
				if !domain.KnownHealth(health) {
					return nil, fmt.Errorf("container %q (service %q of %q) reports unknown health %q",
						containerName, serviceName, def.Name, health)
				}
			}
		}

		lines = append(lines, oneHot(def.Name, serviceName, "state", domain.PossibleStates, state)...)
		lines = append(lines, oneHot(def.Name, serviceName, "health", domain.PossibleHealths, health)...)
	}
	return lines, nil
}

// oneHot emits one gauge line per possible value: 1 for the effective value
// and 0 for every other, so each service always contributes the same series.
func oneHot(composeName, serviceName, dimension string, possibleValues []string, effective string) []string {
	lines := make([]string, 0, len(possibleValues))
	for _, possible := range possibleValues {
		value := 0
		if possible == effective {
			value = 1
		}
		lines = append(lines, fmt.Sprintf(
			`compose_service_%s{compose_name="%s",service_name="%s",state="%s"} %d`,
			dimension,
			labelEscaper.Replace(composeName),
			labelEscaper.Replace(serviceName),
			labelEscaper.Replace(possible),
			value,
		))
	}
	return lines
}

// findByName returns the first container with the given name. The runtime
// should never report duplicates, but if it does the first match wins.
func findByName(containers []domain.RuntimeContainer, name string) *domain.RuntimeContainer {
	for i := range containers {
		if containers[i].Name == name {
			return &containers[i]
		}
	}
	return nil
}
