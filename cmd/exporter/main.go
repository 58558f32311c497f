// Command exporter serves the health/run state of docker compose
// applications as Prometheus metrics.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/common/model"
	"github.com/prometheus/common/promslog"
	promslogflag "github.com/prometheus/common/promslog/flag"
	"github.com/prometheus/common/version"

	"github.com/pfiers/compose-apps-exporter/internal/adapters/compose"
	exporterhttp "github.com/pfiers/compose-apps-exporter/internal/adapters/http"
	"github.com/pfiers/compose-apps-exporter/internal/adapters/locator"
	"github.com/pfiers/compose-apps-exporter/internal/config"
	"github.com/pfiers/compose-apps-exporter/internal/core/metrics"
)

const appName = "compose-apps-exporter"

func main() {
	sources := configSources()
	promslogConfig := &promslog.Config{}
	cliLayer := parseFlags(sources, promslogConfig)
	logger := promslog.New(promslogConfig)

	cfg, err := config.Resolve(sources, cliLayer)
	if err != nil {
		logger.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	inspector := compose.NewAdapter(cfg.CommandTimeout)
	aggregator := metrics.NewAggregator(locator.New(), inspector, cfg.ComposeConfigsGlob)
	handler := exporterhttp.NewMetricsHandler(aggregator, logger)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.Register(app)

	addr := cfg.ListenAddr()
	logger.Info("listening", "address", "http://"+addr)
	if err := app.Listen(addr); err != nil {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

// configSources names the two config file layers. The per-GOOS branching
// stays here, outside the merge logic. A missing user config dir (no HOME)
// just disables that layer.
func configSources() config.Sources {
	var userFile string
	if userDir, err := os.UserConfigDir(); err == nil {
		userFile = filepath.Join(userDir, appName, "config.yaml")
	}

	systemBase := "/etc"
	switch runtime.GOOS {
	case "darwin":
		systemBase = "/usr/local/etc"
	case "windows":
		systemBase = `C:\ProgramData`
	}

	return config.Sources{
		UserFile:   userFile,
		SystemFile: filepath.Join(systemBase, appName, "config.yaml"),
	}
}

// parseFlags builds the CLI configuration layer. Only flags the user
// explicitly passed end up in the layer, so flag defaults never clobber
// values from lower-precedence sources.
func parseFlags(sources config.Sources, promslogConfig *promslog.Config) config.Layer {
	help := fmt.Sprintf(`Prometheus metrics exporter for docker compose apps.

From lowest to highest priority, configuration is loaded from:
  - default values
  - user configuration file (%s)
  - system configuration file (%s)
  - environment variables (prefixed with %s)
  - command line arguments`,
		sources.UserFile, sources.SystemFile, config.EnvPrefix)

	app := kingpin.New(filepath.Base(os.Args[0]), help)
	app.Version(version.Print(appName))
	app.HelpFlag.Short('h')
	promslogflag.AddFlags(app, promslogConfig)

	var globsSet, portSet, addressSet, timeoutSet bool
	globs := app.Flag("compose-configs-glob",
		fmt.Sprintf("Glob pattern for docker-compose.yml files or directories containing them (default %q).", config.DefaultGlob)).
		Short('c').IsSetByUser(&globsSet).Strings()
	port := app.Flag("port",
		fmt.Sprintf("Port to listen on (default %d).", config.DefaultPort)).
		Short('p').IsSetByUser(&portSet).Uint16()
	address := app.Flag("address",
		fmt.Sprintf("Address to listen on (default %s).", config.DefaultAddress)).
		Short('a').IsSetByUser(&addressSet).String()
	timeout := app.Flag("command-timeout",
		fmt.Sprintf("Timeout for each docker compose invocation (default %s).", config.DefaultCommandTimeout)).
		IsSetByUser(&timeoutSet).Duration()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	var layer config.Layer
	if globsSet {
		layer.ComposeConfigsGlob = *globs
	}
	if portSet {
		layer.Port = port
	}
	if addressSet {
		layer.Address = address
	}
	if timeoutSet {
		d := model.Duration(*timeout)
		layer.CommandTimeout = &d
	}
	return layer
}
