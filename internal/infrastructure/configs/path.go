package configs

import (
	"flag"
	"os"

	"github.com/calima-dev/audixa/internal/infrastructure/env"
)

// DetermineConfigPath resolves the config file from the --config flag, the
// AUDIXA_CONFIG env var, or a set of conventional locations. An empty return
// means no file was found; Load falls back to defaults and env overrides so
// the binaries still start without one.
func DetermineConfigPath() string {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if configPath == "" {
		configPath = env.GetString("AUDIXA_CONFIG", "")
	}

	if configPath == "" {
		candidates := []string{
			"./config.yaml",
			"./config.yml",
			"/etc/audixa/config.yaml",
			"/app/config.yaml", // common in Docker
		}

		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	return configPath
}
