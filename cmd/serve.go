package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/reviewdeck/internal/api"
	"github.com/reviewdeck/internal/config"
	"github.com/reviewdeck/internal/engine"
	"github.com/reviewdeck/internal/providers"
	"github.com/reviewdeck/internal/providers/bitbucket"
	"github.com/reviewdeck/internal/providers/github"
)

// ServeCommand returns the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the derived-data API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides config)",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	port := cfg.Server.Port
	if c.Int("port") != 0 {
		port = c.Int("port")
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	client, err := engine.NewClient(engine.Options{
		CacheCapacity: cfg.Cache.Capacity,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to start compute engine: %w", err)
	}

	logger.Info().Int("port", port).Int("cache_capacity", cfg.Cache.Capacity).Msg("Starting reviewdeck server")
	server := api.NewServer(port, client, buildProviders(cfg), logger)
	return server.Start()
}

// buildProviders wires up every host the configuration names. GitHub is
// always available since it works unauthenticated on public repositories.
func buildProviders(cfg *config.Config) map[string]providers.Provider {
	hosts := map[string]providers.Provider{
		"github": github.NewProvider(cfg.ProviderString("github", "token")),
	}
	if email := cfg.ProviderString("bitbucket", "email"); email != "" {
		hosts["bitbucket"] = bitbucket.NewProvider(email, cfg.ProviderString("bitbucket", "token"))
	}
	return hosts
}
