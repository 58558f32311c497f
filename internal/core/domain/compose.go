package domain

// ApplicationDefinition is the declared topology of one compose application:
// the project name plus the container name backing each declared service.
// It is parsed fresh on every scrape and discarded afterwards.
type ApplicationDefinition struct {
	Name     string
	Services map[string]string // service name -> container name
}

// RuntimeContainer is one live container as reported by the runtime
// (Docker, Podman, etc.).
type RuntimeContainer struct {
	Name   string
	State  string // created, restarting, running, removing, paused, exited or dead
	Health string // starting, healthy or unhealthy; "" means no health check configured
}

// Synthetic values for services whose container is not reported by the
// runtime, or whose container carries no health check.
const (
	StateNotUp    = "not_up"
	HealthNoCheck = "no_check"
)

// PossibleStates and PossibleHealths are the fixed-order, fixed-cardinality
// value sets of the two state dimensions. Every service gets exactly one
// gauge line per value, so series cardinality is stable across scrapes no
// matter what state a service is actually in.
var (
	PossibleStates  = []string{StateNotUp, "created", "restarting", "running", "removing", "paused", "exited", "dead"}
	PossibleHealths = []string{StateNotUp, HealthNoCheck, "starting", "healthy", "unhealthy"}
)

// KnownState reports whether s is a state the runtime may legitimately
// report for a live container (i.e. anything except the synthetic not_up).
func KnownState(s string) bool {
	for _, v := range PossibleStates[1:] {
		if s == v {
			return true
		}
	}
	return false
}

// KnownHealth reports whether h is a health value the runtime may
// legitimately report for a container that has a health check.
func KnownHealth(h string) bool {
	for _, v := range PossibleHealths[2:] {
		if h == v {
			return true
		}
	}
	return false
}
