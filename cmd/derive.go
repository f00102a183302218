package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/reviewdeck/internal/engine"
	"github.com/reviewdeck/pkg/models"
)

// DeriveCommand returns the derive command, which runs the full pipeline on
// local files and prints the derived data as JSON. Useful for inspecting what
// the UI would render without a running server.
func DeriveCommand() *cli.Command {
	return &cli.Command{
		Name:  "derive",
		Usage: "Compute review derived data from a local diff",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "diff",
				Aliases:  []string{"d"},
				Usage:    "Unified diff `FILE`",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "comments",
				Usage: "JSON `FILE` with an array of comments",
			},
		},
		Action: runDerive,
	}
}

func runDerive(c *cli.Context) error {
	diffText, err := os.ReadFile(c.String("diff"))
	if err != nil {
		return fmt.Errorf("failed to read diff file: %w", err)
	}

	var comments []models.Comment
	if path := c.String("comments"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read comments file: %w", err)
		}
		if err := json.Unmarshal(data, &comments); err != nil {
			return fmt.Errorf("failed to parse comments file: %w", err)
		}
	}

	client, err := engine.NewClient(engine.Options{
		Logger: zerolog.New(os.Stderr).Level(zerolog.WarnLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to start compute engine: %w", err)
	}
	defer client.Close()

	result, err := client.Compute(context.Background(), engine.Request{
		DiffText: string(diffText),
		Comments: comments,
	})
	if err != nil {
		return fmt.Errorf("derive failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
