package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"critterdex/internal/catalog"
	"critterdex/internal/common"
)

// List shows one page of the catalog. An optional numeric argument is the
// page offset.
func (a *App) List(ctx context.Context, args []string) error {
	offset, err := optionalOffset(args)
	if err != nil {
		printlnFn("Usage: list [offset]")
		return nil
	}

	page, err := a.catalog.List(ctx, offset, pageSize)
	if err != nil {
		a.log.Error(ctx, "catalog list failed", "error", err)
		printlnFn("Could not load the catalog:", err.Error())
		return err
	}

	for _, c := range page.Results {
		a.printEntry(c)
	}
	printlnFn(fmt.Sprintf("Showing %d-%d of %d", offset+1, offset+len(page.Results), page.Count))
	return nil
}

// Search looks for creatures whose name contains the query.
func (a *App) Search(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: search <query>")
		return nil
	}
	query := strings.Join(args, " ")

	results, err := a.catalog.Search(ctx, query, pageSize)
	if err != nil {
		a.log.Error(ctx, "catalog search failed", "query", query, "error", err)
		printlnFn("Search failed:", err.Error())
		return err
	}

	if len(results) == 0 {
		printlnFn("No creatures match", strconv.Quote(query))
		return nil
	}
	for _, c := range results {
		a.printEntry(c)
	}
	return nil
}

// Show prints a single creature's record, looked up by id or by name.
func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: show <id|name>")
		return nil
	}

	var (
		c   *catalog.Creature
		err error
	)
	if id, convErr := strconv.Atoi(args[0]); convErr == nil {
		c, err = a.catalog.GetByID(ctx, id)
	} else {
		c, err = a.catalog.GetByName(ctx, strings.ToLower(args[0]))
	}
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			printlnFn("No such creature:", args[0])
			return nil
		}
		a.log.Error(ctx, "catalog lookup failed", "arg", args[0], "error", err)
		printlnFn("Lookup failed:", err.Error())
		return err
	}

	printlnFn(fmt.Sprintf("#%d %s", c.ID, c.Name))
	printlnFn(fmt.Sprintf("  height: %d  weight: %d", c.Height, c.Weight))
	if len(c.Categories) > 0 {
		printlnFn("  categories:", strings.Join(c.Categories, ", "))
	}
	if c.ImageURL != "" {
		printlnFn("  image:", c.ImageURL)
	}
	if a.favorites.IsFavorite(c.ID) {
		printlnFn("  ★ favorite")
	}
	return nil
}

// Category shows one page of a category's creatures. An optional numeric
// argument after the category name is the page offset.
func (a *App) Category(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: category <name> [offset]")
		return nil
	}
	name := strings.ToLower(args[0])
	offset, err := optionalOffset(args[1:])
	if err != nil {
		printlnFn("Usage: category <name> [offset]")
		return nil
	}

	page, err := a.catalog.ListByCategory(ctx, name, offset, pageSize)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			printlnFn("No such category:", name)
			return nil
		}
		a.log.Error(ctx, "category listing failed", "category", name, "error", err)
		printlnFn("Could not load the category:", err.Error())
		return err
	}

	for _, c := range page.Results {
		a.printEntry(c)
	}
	if page.HasMore {
		printlnFn(fmt.Sprintf("More available (%d total); try: category %s %d", page.Total, name, offset+pageSize))
	}
	return nil
}

func (a *App) printEntry(c catalog.Creature) {
	marker := " "
	if a.favorites.IsFavorite(c.ID) {
		marker = "★"
	}
	printlnFn(fmt.Sprintf("%s #%d %s", marker, c.ID, c.Name))
}

// optionalOffset parses args as an optional non-negative page offset.
func optionalOffset(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	offset, err := strconv.Atoi(args[0])
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("invalid offset %q", args[0])
	}
	return offset, nil
}
