// Package config resolves the exporter's startup configuration from five
// layered sources, lowest to highest precedence: built-in defaults, a
// per-user YAML file, a system-wide YAML file, environment variables and
// command line arguments. A field is only overridden by a layer that
// actually sets it; in particular, CLI flags left at their own default must
// not clobber values from lower layers, which is why the CLI layer is built
// from explicitly-set flags only (see cmd/exporter).
package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/common/model"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is shared by all recognized environment variables; each field is
// looked up as EnvPrefix + upper-cased field name.
const EnvPrefix = "COMPOSE_APPS_EXPORTER_"

// Built-in defaults, the lowest-precedence layer.
const (
	DefaultGlob           = "/etc/compose-apps/*"
	DefaultPort           = uint16(9179)
	DefaultAddress        = "127.0.0.1"
	DefaultCommandTimeout = 30 * time.Second
)

// Layer is one source's contribution to the merged configuration. Nil
// pointer fields (and an empty glob list) mean "not set by this source" and
// leave lower-precedence values in place.
type Layer struct {
	ComposeConfigsGlob []string        `yaml:"compose_configs_glob"`
	Port               *uint16         `yaml:"port"`
	Address            *string         `yaml:"address"`
	CommandTimeout     *model.Duration `yaml:"command_timeout"`
}

// Sources names the config files consulted at startup, built by the caller
// so no platform branching lives in the merge logic itself. An empty path
// is skipped; a named but missing file is an empty layer, not an error.
type Sources struct {
	UserFile   string
	SystemFile string
}

// Resolved is the validated, immutable configuration shared read-only by
// all request handlers for the process lifetime.
type Resolved struct {
	ComposeConfigsGlob []string
	Port               uint16
	Address            netip.Addr
	CommandTimeout     time.Duration
}

// ListenAddr renders the address:port pair for net.Listen, with IPv6
// addresses bracketed.
func (r *Resolved) ListenAddr() string {
	return netip.AddrPortFrom(r.Address, r.Port).String()
}

// Resolve merges defaults, the two config files, the process environment and
// the CLI layer, then validates the result. It runs exactly once, before
// the listener binds; any error is fatal to startup.
func Resolve(srcs Sources, cli Layer) (*Resolved, error) {
	merged := defaults()

	for _, path := range []string{srcs.UserFile, srcs.SystemFile} {
		layer, err := fileLayer(path)
		if err != nil {
			return nil, err
		}
		apply(&merged, layer)
	}

	env, err := FromEnv(os.LookupEnv)
	if err != nil {
		return nil, err
	}
	apply(&merged, env)
	apply(&merged, cli)

	return validate(merged)
}

// FromEnv builds the environment layer from the given lookup function
// (usually os.LookupEnv). COMPOSE_CONFIGS_GLOB holds a comma-separated
// list of patterns.
func FromEnv(lookup func(string) (string, bool)) (Layer, error) {
	var layer Layer
	if v, ok := lookup(EnvPrefix + "COMPOSE_CONFIGS_GLOB"); ok {
		for _, glob := range strings.Split(v, ",") {
			if glob = strings.TrimSpace(glob); glob != "" {
				layer.ComposeConfigsGlob = append(layer.ComposeConfigsGlob, glob)
			}
		}
	}
	if v, ok := lookup(EnvPrefix + "PORT"); ok {
		port, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return Layer{}, fmt.Errorf("invalid %sPORT %q: %w", EnvPrefix, v, err)
		}
		p := uint16(port)
		layer.Port = &p
	}
	if v, ok := lookup(EnvPrefix + "ADDRESS"); ok {
		layer.Address = &v
	}
	if v, ok := lookup(EnvPrefix + "COMMAND_TIMEOUT"); ok {
		d, err := model.ParseDuration(v)
		if err != nil {
			return Layer{}, fmt.Errorf("invalid %sCOMMAND_TIMEOUT %q: %w", EnvPrefix, v, err)
		}
		layer.CommandTimeout = &d
	}
	return layer, nil
}

func defaults() Layer {
	port := DefaultPort
	address := DefaultAddress
	timeout := model.Duration(DefaultCommandTimeout)
	return Layer{
		ComposeConfigsGlob: []string{DefaultGlob},
		Port:               &port,
		Address:            &address,
		CommandTimeout:     &timeout,
	}
}

func fileLayer(path string) (Layer, error) {
	if path == "" {
		return Layer{}, nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Layer{}, nil
	}
	if err != nil {
		return Layer{}, fmt.Errorf("read config file %s: %w", path, err)
	}
	var layer Layer
	if err := yaml.UnmarshalStrict(raw, &layer); err != nil {
		return Layer{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return layer, nil
}

func apply(dst *Layer, src Layer) {
	if len(src.ComposeConfigsGlob) > 0 {
		dst.ComposeConfigsGlob = src.ComposeConfigsGlob
	}
	if src.Port != nil {
		dst.Port = src.Port
	}
	if src.Address != nil {
		dst.Address = src.Address
	}
	if src.CommandTimeout != nil {
		dst.CommandTimeout = src.CommandTimeout
	}
}

func validate(merged Layer) (*Resolved, error) {
	if len(merged.ComposeConfigsGlob) == 0 {
		return nil, fmt.Errorf("compose_configs_glob must not be empty")
	}
	address, err := netip.ParseAddr(*merged.Address)
	if err != nil {
		return nil, fmt.Errorf("address %q is not a valid IP literal: %w", *merged.Address, err)
	}
	timeout := time.Duration(*merged.CommandTimeout)
	if timeout <= 0 {
		return nil, fmt.Errorf("command_timeout must be positive, got %s", timeout)
	}
	return &Resolved{
		ComposeConfigsGlob: merged.ComposeConfigsGlob,
		Port:               *merged.Port,
		Address:            address,
		CommandTimeout:     timeout,
	}, nil
}
