// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/go-accounts/internal/config"
	"codeberg.org/oliverandrich/go-accounts/internal/database"
	"codeberg.org/oliverandrich/go-accounts/internal/repository"
	"codeberg.org/oliverandrich/go-accounts/internal/securityhash"
	"codeberg.org/oliverandrich/go-accounts/internal/server"
	"codeberg.org/oliverandrich/go-accounts/internal/services/tokens"
	"github.com/urfave/cli/v3"
)

var errTokenInvalid = errors.New("token is not valid")

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue and inspect security tokens",
		Commands: []*cli.Command{
			{
				Name:  "issue",
				Usage: "Print a fresh token",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "valid-for",
						Value: securityhash.DefaultValidity,
						Usage: "How long the token stays valid",
					},
				},
				Action: issueToken,
			},
			{
				Name:      "check",
				Usage:     "Decode a token and report whether it is valid",
				ArgsUsage: "<token>",
				Action:    checkToken,
			},
		},
	}
}

func pruneCommand() *cli.Command {
	return &cli.Command{
		Name:   "prune",
		Usage:  "Delete expired tokens from the database",
		Action: prune,
	}
}

func issueToken(_ context.Context, cmd *cli.Command) error {
	validFor := cmd.Duration("valid-for")
	if validFor <= 0 {
		return fmt.Errorf("valid-for must be positive, got %s", validFor)
	}

	token, err := securityhash.New().IssueFor(validFor)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.Root().Writer, token)
	return err
}

func checkToken(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errors.New("expected exactly one token argument")
	}

	res := securityhash.New().Check(cmd.Args().First())

	w := cmd.Root().Writer
	if _, err := fmt.Fprintf(w, "reason: %s\n", res.Reason); err != nil {
		return err
	}
	if !res.ExpiresAt.IsZero() {
		if _, err := fmt.Fprintf(w, "expires: %s\n", res.ExpiresAt.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}

	if res.Reason != securityhash.ReasonValid {
		return errTokenInvalid
	}
	return nil
}

func prune(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	log := server.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database", "error", closeErr)
		}
	}()

	store := tokens.NewStore(repository.New(db), securityhash.New(), log)
	n, err := store.Prune(ctx)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.Root().Writer, "pruned %d expired tokens\n", n)
	return err
}
