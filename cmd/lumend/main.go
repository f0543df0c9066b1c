// Command lumend is the daemon entrypoint: it parses CLI flags (layered
// over optional JSON/YAML/TOML config), wires up logging, registers every
// built-in device type and renderer, and runs the selected subcommand.
package main

import (
	"os"
	"strings"

	"github.com/lumenhub/lumend/internal/cmd"
	"github.com/lumenhub/lumend/internal/configpaths"
	"github.com/lumenhub/lumend/internal/log"

	_ "github.com/lumenhub/lumend/internal/registry" // register built-in device types and renderers

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"
)

func main() {
	userCfg := findUserConfig(os.Args[1:])
	jsonPaths, yamlPaths, tomlPaths := configpaths.ConfigCandidatePaths(userCfg)

	var cli cmd.CLI
	kctx := kong.Parse(&cli,
		kong.Name("lumend"),
		kong.Description("HID RGB peripheral control daemon"),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)

	logger, closeFiles, err := log.SetupLogger(cli.Log.Level, cli.Log.File)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer func() {
		for _, c := range closeFiles {
			_ = c.Close()
		}
	}()

	kctx.Bind(logger)

	err = kctx.Run()
	kctx.FatalIfErrorf(err)
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
	if v := os.Getenv("LUMEND_CONFIG"); v != "" {
		return v
	}
	return ""
}
