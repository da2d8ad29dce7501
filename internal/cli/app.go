package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"critterdex/internal/accounts"
	"critterdex/internal/catalog"
	"critterdex/internal/config"
	"critterdex/internal/favorites"
	"critterdex/internal/logging"
)

// pageSize is how many catalog entries list/category show per screen.
const pageSize = 20

type App struct {
	config    *config.Config
	accounts  *accounts.Store
	favorites *favorites.Store
	catalog   *catalog.Client
	log       logging.Logger
	reader    *bufio.Reader
}

func NewApp(c *config.Config, accts *accounts.Store, favs *favorites.Store, cat *catalog.Client, log logging.Logger) *App {
	return &App{
		config:    c,
		accounts:  accts,
		favorites: favs,
		catalog:   cat,
		log:       logging.OrNop(log),
		reader:    bufio.NewReader(os.Stdin),
	}
}

func (a *App) isLoggedIn() bool {
	return a.accounts.IsAuthenticated()
}

func (a *App) getStatus() string {
	sess, ok := a.accounts.Current()
	if !ok {
		return ""
	}
	return fmt.Sprintf("(%s)", sess.Username)
}

// Run starts the interactive loop and blocks until the user exits or stdin
// is closed.
func (a *App) Run(ctx context.Context) {
	printlnFn("Welcome to critterdex (type 'help' for commands)")

	// Session changes can arrive from other running instances; surface them
	// so the prompt change does not look spontaneous.
	remove := a.accounts.OnSessionChange(func(sess accounts.Session, ok bool) {
		if ok {
			printlnFn("Session is now", sess.Username)
		} else {
			printlnFn("Session ended")
		}
	})
	defer remove()

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}
