package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Whoami(ctx context.Context) error
	List(ctx context.Context, args []string) error
	Search(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Category(ctx context.Context, args []string) error
	Fav(ctx context.Context, args []string) error
	Unfav(ctx context.Context, args []string) error
	Favs(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the critterdex CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help                    — show available commands
//	  - register                — create an account
//	  - login                   — authenticate
//	  - list | search | show | category — browse the catalog
//	  - exit | quit             — leave the program
//
//	Logged in, additionally:
//	  - whoami                  — show the active session
//	  - fav <id>                — mark a creature as favorite
//	  - unfav <id>              — remove a creature from favorites
//	  - favs                    — list favorite creatures
//	  - logout                  — end the session
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("cdx> %s ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist, search, show, category, fav, unfav, favs, whoami, logout, exit")
			} else {
				printlnFn("Available commands: register, login, list, search, show, category, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.Whoami(ctx)

		case "l", "list":
			_ = a.List(ctx, args)

		case "search":
			_ = a.Search(ctx, args)

		case "show":
			_ = a.Show(ctx, args)

		case "category":
			_ = a.Category(ctx, args)

		case "fav":
			_ = a.Fav(ctx, args)

		case "unfav":
			_ = a.Unfav(ctx, args)

		case "favs":
			_ = a.Favs(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
