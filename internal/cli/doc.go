// Package cli provides the interactive critterdex command-line client.
//
// It wires configuration, the local keystore, account/favorites state, and
// the remote creature catalog into an interactive REPL. Typical flow: the
// user registers or logs in, browses the catalog, and marks creatures as
// favorites; favorites and the session survive restarts and are shared with
// other running instances through the keystore.
//
// Key features:
//   - register / login / logout / whoami
//   - list, search, show, category — browse the remote catalog
//   - fav, unfav, favs — manage per-account favorites
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
