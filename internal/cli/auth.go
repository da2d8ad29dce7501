package cli

import (
	"context"
	"os"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts the user for a username and password and attempts to
// create a new account. The outcome message is printed verbatim; a rejected
// registration is not an error from the REPL's point of view.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Choose a username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	res := a.accounts.Register(ctx, username, password)
	printlnFn(res.Message)
	return nil
}

// Login prompts the user for credentials and tries to authenticate. The
// outcome message is printed verbatim.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	res := a.accounts.Authenticate(ctx, username, password)
	printlnFn(res.Message)
	return nil
}

// Logout ends the active session. A logout without a session is a no-op.
func (a *App) Logout(ctx context.Context) error {
	if !a.accounts.IsAuthenticated() {
		printlnFn("Not logged in")
		return nil
	}
	a.accounts.EndSession(ctx)
	printlnFn("Logged out")
	return nil
}

// Whoami prints the active session, if any.
func (a *App) Whoami(ctx context.Context) error {
	sess, ok := a.accounts.Current()
	if !ok {
		printlnFn("Not logged in")
		return nil
	}
	printlnFn("Logged in as", sess.Username)
	return nil
}
