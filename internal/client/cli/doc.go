// Package cli provides the interactive storeadmin command-line client.
//
// It wires configuration, the local session database, the store API client,
// the session store, the view router, the product catalog and the
// cross-process logout watcher, then runs a REPL over them.
//
// Every command belongs to a view (route). Before a command runs the router
// navigates to its view; when the navigation guard redirects elsewhere (for
// example to login because nobody is signed in) the redirect is reported and
// the command is skipped. Logging in afterwards follows the pending redirect.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, runREPL and the command methods for details.
package cli
