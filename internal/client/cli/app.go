package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/storeadmin/internal/client/api"
	"github.com/dmitrijs2005/storeadmin/internal/client/broadcast"
	"github.com/dmitrijs2005/storeadmin/internal/client/config"
	"github.com/dmitrijs2005/storeadmin/internal/client/router"
	"github.com/dmitrijs2005/storeadmin/internal/client/services"
	"github.com/dmitrijs2005/storeadmin/internal/client/storage"
	"github.com/dmitrijs2005/storeadmin/internal/logging"
)

const sessionExpiredMessage = "Your session has expired. Please log in again."

type App struct {
	config  *config.Config
	db      *sql.DB
	slots   *storage.Slots
	api     *api.Client
	session *services.SessionStore
	router  *router.Router
	catalog *services.Catalog
	watcher *broadcast.Watcher
	notify  *Notifier
	log     logging.Logger
	reader  *bufio.Reader
	out     io.Writer
}

// NewApp opens the session database named by the config (if any) and wires
// the application on stdin / stdout.
func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()
	log := logging.New(c.LogLevel, os.Stderr)

	var db *sql.DB
	if c.StoragePath != "" {
		var err error
		db, err = storage.Open(ctx, c.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("open session storage: %w", err)
		}
	} else {
		log.Warn(ctx, "no storage path configured, the session will not survive a restart")
	}

	app, err := newApp(ctx, c, db, os.Stdin, os.Stdout, log)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}
	return app, nil
}

// newApp wires every component. A nil db runs without persistent storage.
func newApp(ctx context.Context, c *config.Config, db *sql.DB, in io.Reader, out io.Writer, log logging.Logger) (*App, error) {
	out = &lockedWriter{w: out}

	slots := storage.Detached(log)
	if db != nil {
		slots = storage.New(db, log)
	}

	// the token source reads through the session store, which needs the client
	var session *services.SessionStore
	client, err := api.New(api.Options{
		BaseURL:           c.APIBaseURL,
		Tokens:            func(ctx context.Context) string { return session.AccessToken(ctx) },
		RequestsPerSecond: c.RequestsPerSecond,
		Logger:            log,
	})
	if err != nil {
		return nil, err
	}

	channel := broadcast.NewChannel(slots)
	session = services.NewSessionStore(client, slots, channel, log)
	session.Restore(ctx)

	r := router.New(session, log, router.DefaultRoutes()...)

	if err := client.InstallUnauthorizedHandler(
		func() api.SessionTerminator { return session },
		func() api.Navigator { return r },
	); err != nil {
		return nil, err
	}

	a := &App{
		config:  c,
		db:      db,
		slots:   slots,
		api:     client,
		session: session,
		router:  r,
		catalog: services.NewCatalog(client, c.PageSize, log),
		notify:  NewNotifier(out),
		log:     log,
		reader:  bufio.NewReader(in),
		out:     out,
	}
	a.watcher = broadcast.NewWatcher(channel, c.StoragePath, c.LogoutPollInterval, r, session.Restore, log)

	r.OnNavigate(func(from, to router.Location) {
		if to.Name == router.Login && to.Query[router.QueryExpired] == "1" && from.FullPath() != to.FullPath() {
			a.notify.Warning(sessionExpiredMessage)
		}
	})

	return a, nil
}

// Run starts the logout watcher and the REPL and blocks until the user exits
// or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		if err := a.watcher.Run(ctx); err != nil {
			a.log.Warn(ctx, "logout watcher stopped", "err", err)
		}
	}()
	defer func() {
		cancel()
		<-watcherDone
	}()

	fmt.Fprintln(a.out, "storeadmin: store admin console (type 'help' for commands)")
	if u := a.session.User(); u != nil && a.session.IsAuthenticated() {
		a.notify.Success(fmt.Sprintf("Welcome back, %s.", displayName(u.Name, u.Email)))
	}
	if _, err := a.router.Push(ctx, router.Location{Name: router.Dashboard}); err != nil {
		a.log.Warn(ctx, "initial navigation failed", "err", err)
	}

	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}

// Close releases the session database.
func (a *App) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}

func (a *App) getStatus() string {
	who := "guest"
	if u := a.session.User(); u != nil && a.session.IsAuthenticated() {
		who = u.Email
	}
	return fmt.Sprintf("(%s %s)", who, a.router.Current().FullPath())
}

// navigate moves to the named view, keeping the query when already there,
// and reports whether the router landed on it. A guard redirect is reported
// to the user.
func (a *App) navigate(ctx context.Context, name string) bool {
	target := router.Location{Name: name}
	if cur := a.router.Current(); cur.Name == name {
		target = cur
	}

	landed, err := a.router.Push(ctx, target)
	if err != nil {
		a.notify.Error(err.Error())
		return false
	}
	if landed.Name != name {
		a.notify.Warning(fmt.Sprintf("%s is not available here, redirected to %s", name, landed.FullPath()))
		return false
	}
	return true
}

func displayName(name, email string) string {
	if name != "" {
		return name
	}
	return email
}
