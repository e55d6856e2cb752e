package main

import (
	"flag"

	"github.com/danmuck/artwire/internal/config"
	"github.com/danmuck/artwire/internal/logging"
	"github.com/rs/zerolog/log"
)

func defaultPath(kind string) string {
	switch kind {
	case "client":
		return "cmd/artctl/config.toml"
	case "server":
		return "cmd/artserved/config.toml"
	default:
		log.Fatal().Str("kind", kind).Msg("unknown kind")
		return ""
	}
}

func main() {
	logging.ConfigureRuntime("configgen")

	kind := flag.String("kind", "client", "config kind: client|server")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath(*kind)
		}

		var err error
		switch *kind {
		case "client":
			_, err = config.LoadClientConfig(path)
		case "server":
			_, err = config.LoadServerConfig(path)
		default:
			log.Fatal().Str("kind", *kind).Msg("unknown kind")
		}
		if err != nil {
			log.Fatal().Err(err).Msg("validate failed")
		}
		log.Info().Str("kind", *kind).Str("path", path).Msg("validated config")
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(*kind)
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal().Err(err).Msg("write template failed")
	}
	log.Info().Str("kind", *kind).Str("path", target).Msg("wrote config template")
}
