// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/go-accounts/internal/services/tokens"
)

// runPruner deletes expired tokens once right away and then every interval
// until ctx is done.
func runPruner(ctx context.Context, store *tokens.Store, interval time.Duration, log *slog.Logger) {
	pruneOnce(ctx, store, log)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneOnce(ctx, store, log)
		}
	}
}

func pruneOnce(ctx context.Context, store *tokens.Store, log *slog.Logger) {
	n, err := store.Prune(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Error("failed to prune tokens", "error", err)
		}
		return
	}
	if n > 0 {
		log.Info("pruned expired tokens", "count", n)
	}
}
