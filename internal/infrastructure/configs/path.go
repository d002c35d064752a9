package configs

import (
	"flag"
	"os"

	"github.com/hilthontt/roomkeeper/internal/infrastructure/env"
)

var configCandidates = []string{
	"./config.yaml",
	"./config.yml",
	"./tmp/config.yaml",
	"../../config.yaml", // local dev from cmd/http
	"/etc/roomkeeper/config.yaml",
	"/app/config.yaml",
}

// DetermineConfigPath resolves the config file from --config, then
// ROOMKEEPER_CONFIG, then the first well-known location that exists.
// An empty result means "defaults and environment only".
func DetermineConfigPath(args []string) string {
	fs := flag.NewFlagSet("roomkeeper", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args)

	if *configPath != "" {
		return *configPath
	}

	if p := env.GetString("ROOMKEEPER_CONFIG", ""); p != "" {
		return p
	}

	for _, p := range configCandidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
