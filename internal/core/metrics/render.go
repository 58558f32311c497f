package metrics

import "strings"

const preamble = `# HELP compose_service_state One-hot encoding of the compose service's container state
# TYPE compose_service_state gauge
# HELP compose_service_health One-hot encoding of the compose service's container health
# TYPE compose_service_health gauge
# HELP compose_apps_nbro_configs Number of docker-compose apps
# TYPE compose_apps_nbro_configs gauge
`

// Render wraps the aggregated gauge lines with the HELP/TYPE declarations of
// the three metric families and guarantees exactly one trailing newline.
func Render(lines []string) string {
	body := strings.TrimRight(strings.Join(lines, "\n"), "\n")
	if body == "" {
		return preamble
	}
	return preamble + body + "\n"
}
