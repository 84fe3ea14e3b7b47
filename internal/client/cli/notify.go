package cli

import (
	"fmt"
	"io"
	"sync"
)

// lockedWriter serialises writes from the REPL and from background
// watchers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// Notifier prints one-line user notifications.
type Notifier struct {
	w io.Writer
}

func NewNotifier(w io.Writer) *Notifier {
	return &Notifier{w: w}
}

func (n *Notifier) Success(msg string) {
	fmt.Fprintln(n.w, "[ok] "+msg)
}

func (n *Notifier) Warning(msg string) {
	fmt.Fprintln(n.w, "[warn] "+msg)
}

func (n *Notifier) Error(msg string) {
	fmt.Fprintln(n.w, "[error] "+msg)
}
