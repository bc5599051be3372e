package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rosettapad/rosettapad/internal/app"
	"github.com/rosettapad/rosettapad/internal/config"
	"github.com/rosettapad/rosettapad/internal/configpaths"
	"github.com/rosettapad/rosettapad/internal/logging"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"
)

func main() {
	userCfg := findUserConfig(os.Args[1:])
	jsonPaths, yamlPaths, tomlPaths := configpaths.ConfigCandidatePaths(userCfg)

	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("rosettapad"),
		kong.Description("DualSense-to-DualShock3 USB/Bluetooth bridge"),
		kong.UsageOnError(),
		// Flags/env override config-file values.
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)

	logger, closeFiles, err := logging.Setup(cli.Log.Level, cli.Log.File)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		for _, c := range closeFiles {
			_ = c.Close()
		}
	}()

	var rawLogger logging.RawLogger
	switch {
	case cli.Log.RawFile != "":
		f, err := os.OpenFile(cli.Log.RawFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Error("failed to open raw log file", "file", cli.Log.RawFile, "error", err)
			rawLogger = logging.NewRaw(nil)
		} else {
			rawLogger = logging.NewRaw(f)
			closeFiles = append(closeFiles, f)
		}
	case cli.Log.Level == "trace":
		rawLogger = logging.NewRaw(os.Stdout)
	default:
		rawLogger = logging.NewRaw(nil)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	orchestrator := app.New(cli, logger, rawLogger)
	if err := orchestrator.Run(ctx); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func findUserConfig(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "--config=") {
			return a[len("--config="):]
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("ROSETTAPAD_CONFIG")
}
