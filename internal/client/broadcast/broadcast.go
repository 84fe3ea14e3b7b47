// Package broadcast spreads a logout to every storeadmin process that shares
// the same storage file.
//
// A logout writes "<unix-millis>:<origin>" into the app.logout slot. Each
// process runs a Watcher that notices the slot changing, through fsnotify on
// the database directory and a slower poll as a backstop, and reacts only to
// values written by some other origin. Delivery is eventual: between the write
// and the watcher noticing it, the two processes disagree about the session.
package broadcast

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/storeadmin/internal/client/router"
	"github.com/dmitrijs2005/storeadmin/internal/client/storage"
	"github.com/dmitrijs2005/storeadmin/internal/common"
	"github.com/dmitrijs2005/storeadmin/internal/logging"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// Channel writes logout signals tagged with this process's origin.
type Channel struct {
	slots  *storage.Slots
	origin string
	now    func() time.Time
}

func NewChannel(slots *storage.Slots) *Channel {
	return &Channel{slots: slots, origin: uuid.NewString(), now: time.Now}
}

func (c *Channel) Origin() string {
	return c.origin
}

// Announce records a logout by this process.
func (c *Channel) Announce(ctx context.Context) error {
	value := fmt.Sprintf("%d:%s", c.now().UnixMilli(), c.origin)
	return c.slots.WriteRaw(ctx, common.SlotLogoutSignal, []byte(value))
}

func originOf(signal string) string {
	_, origin, _ := strings.Cut(signal, ":")
	return origin
}

// Navigator is the part of the router the watcher needs.
type Navigator interface {
	Push(ctx context.Context, to router.Location) (router.Location, error)
}

type Watcher struct {
	channel  *Channel
	dbPath   string
	interval time.Duration
	nav      Navigator
	onLogout func(ctx context.Context)
	log      logging.Logger

	mu   sync.Mutex
	last string
}

// NewWatcher builds a watcher over the database file at dbPath. onLogout runs
// before the navigation and is where the caller drops its in-memory session.
func NewWatcher(ch *Channel, dbPath string, interval time.Duration, nav Navigator, onLogout func(ctx context.Context), log logging.Logger) *Watcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Watcher{
		channel:  ch,
		dbPath:   dbPath,
		interval: interval,
		nav:      nav,
		onLogout: onLogout,
		log:      log.With("component", "logout-watcher"),
	}
}

// Prime remembers the current signal so that a logout that happened before
// this process started is not replayed.
func (w *Watcher) Prime(ctx context.Context) {
	raw, _ := w.channel.slots.ReadRaw(ctx, common.SlotLogoutSignal)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = string(raw)
}

// Check compares the signal slot with the last value seen and reacts to a
// change made by another origin. It reports whether it reacted.
func (w *Watcher) Check(ctx context.Context) bool {
	raw, _ := w.channel.slots.ReadRaw(ctx, common.SlotLogoutSignal)
	value := string(raw)

	w.mu.Lock()
	if value == w.last {
		w.mu.Unlock()
		return false
	}
	w.last = value
	w.mu.Unlock()

	if value == "" || originOf(value) == w.channel.origin {
		return false
	}

	w.log.Info(ctx, "logout received from another process", "origin", originOf(value))

	if w.onLogout != nil {
		w.onLogout(ctx)
	}
	if w.nav != nil {
		if _, err := w.nav.Push(ctx, router.ExpiredLogin()); err != nil {
			w.log.Warn(ctx, "redirect to login failed", "err", err)
		}
	}
	return true
}

// Run watches until ctx is cancelled. It primes itself first.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.channel.slots.Available() {
		return nil
	}

	w.Prime(ctx)

	var events <-chan fsnotify.Event
	var errs <-chan error

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warn(ctx, "file watching unavailable, polling only", "err", err)
	} else {
		defer fsw.Close()
		if err := fsw.Add(filepath.Dir(w.dbPath)); err != nil {
			w.log.Warn(ctx, "file watching unavailable, polling only", "err", err)
		} else {
			events, errs = fsw.Events, fsw.Errors
		}
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	base := filepath.Base(w.dbPath)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			// the database file itself or its -journal / -wal companions
			if strings.HasPrefix(filepath.Base(ev.Name), base) && ev.Has(fsnotify.Write|fsnotify.Create) {
				w.Check(ctx)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.log.Debug(ctx, "file watcher error", "err", err)
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}
