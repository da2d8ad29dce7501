package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"critterdex/internal/common"
)

// Fav marks a creature as favorite. The id is verified against the catalog
// first so typos do not end up in the stored set.
func (a *App) Fav(ctx context.Context, args []string) error {
	id, ok := a.requireFavArgs(args, "fav")
	if !ok {
		return nil
	}

	c, err := a.catalog.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			printlnFn("No such creature:", id)
			return nil
		}
		a.log.Error(ctx, "catalog lookup failed", "id", id, "error", err)
		printlnFn("Lookup failed:", err.Error())
		return err
	}

	a.favorites.Add(ctx, id)
	printlnFn(fmt.Sprintf("Added #%d %s to favorites", c.ID, c.Name))
	return nil
}

// Unfav removes a creature from favorites.
func (a *App) Unfav(ctx context.Context, args []string) error {
	id, ok := a.requireFavArgs(args, "unfav")
	if !ok {
		return nil
	}

	a.favorites.Remove(ctx, id)
	printlnFn(fmt.Sprintf("Removed #%d from favorites", id))
	return nil
}

// Favs lists the favorite creatures of the active account in the order they
// were added.
func (a *App) Favs(ctx context.Context) error {
	if !a.accounts.IsAuthenticated() {
		printlnFn("Log in to use favorites")
		return nil
	}

	ids := a.favorites.List()
	if len(ids) == 0 {
		printlnFn("No favorites yet")
		return nil
	}

	for _, id := range ids {
		c, err := a.catalog.GetByID(ctx, id)
		if err != nil {
			// A stale favorite is still listed; only the name is missing.
			printlnFn(fmt.Sprintf("★ #%d (unavailable)", id))
			continue
		}
		printlnFn(fmt.Sprintf("★ #%d %s", c.ID, c.Name))
	}
	return nil
}

// requireFavArgs validates the session and the single numeric id argument
// shared by fav and unfav.
func (a *App) requireFavArgs(args []string, cmd string) (int, bool) {
	if !a.accounts.IsAuthenticated() {
		printlnFn("Log in to use favorites")
		return 0, false
	}
	if len(args) == 0 {
		printlnFn(fmt.Sprintf("Usage: %s <id>", cmd))
		return 0, false
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		printlnFn(fmt.Sprintf("Usage: %s <id>", cmd))
		return 0, false
	}
	return id, true
}
