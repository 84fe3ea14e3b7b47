// Package router tracks which view of the admin client is active and guards
// navigation between views against the current session state.
package router

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/storeadmin/internal/logging"
)

// Route names.
const (
	Dashboard  = "dashboard"
	Products   = "products"
	Categories = "categories"
	Login      = "login"
	Register   = "register"
)

// Query keys understood by the login view.
const (
	QueryRedirect = "redirect"
	QueryExpired  = "expired"
)

// maxRedirects bounds guard redirect chains.
const maxRedirects = 8

var (
	ErrUnknownRoute     = errors.New("unknown route")
	ErrTooManyRedirects = errors.New("too many redirects")
)

// AuthState is the slice of the session store the guard needs.
type AuthState interface {
	IsAuthenticated() bool
}

type Meta struct {
	RequiresAuth  bool
	RequiresGuest bool
}

type Route struct {
	Name string
	Path string
	Meta Meta
}

// Location is a navigation target. Either Name or Path identifies the route.
type Location struct {
	Name  string
	Path  string
	Query map[string]string
}

// FullPath renders the location as path plus sorted query string.
func (l Location) FullPath() string {
	if len(l.Query) == 0 {
		return l.Path
	}

	keys := make([]string, 0, len(l.Query))
	for k := range l.Query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	v := url.Values{}
	for _, k := range keys {
		v.Set(k, l.Query[k])
	}
	return l.Path + "?" + v.Encode()
}

// ParseLocation turns "/products?page=2" into a Location.
func ParseLocation(fullPath string) Location {
	path, rawQuery, _ := strings.Cut(fullPath, "?")
	loc := Location{Path: path}

	if q, err := url.ParseQuery(rawQuery); err == nil && len(q) > 0 {
		loc.Query = make(map[string]string, len(q))
		for k := range q {
			loc.Query[k] = q.Get(k)
		}
	}
	return loc
}

func DefaultRoutes() []Route {
	return []Route{
		{Name: Dashboard, Path: "/dashboard", Meta: Meta{RequiresAuth: true}},
		{Name: Products, Path: "/products", Meta: Meta{RequiresAuth: true}},
		{Name: Categories, Path: "/categories", Meta: Meta{RequiresAuth: true}},
		{Name: Login, Path: "/login", Meta: Meta{RequiresGuest: true}},
		{Name: Register, Path: "/register", Meta: Meta{RequiresGuest: true}},
	}
}

// Guard decides whether navigation to to may proceed. When it may not, it
// returns the location to go to instead.
func Guard(auth AuthState, to Route, loc Location) (Location, bool) {
	authenticated := auth.IsAuthenticated()

	if to.Meta.RequiresAuth && !authenticated {
		return Location{Name: Login, Query: map[string]string{QueryRedirect: loc.FullPath()}}, false
	}
	if to.Meta.RequiresGuest && authenticated {
		return Location{Name: Dashboard}, false
	}
	return loc, true
}

type Router struct {
	auth AuthState
	log  logging.Logger

	mu        sync.RWMutex
	byName    map[string]Route
	byPath    map[string]Route
	current   Location
	listeners []func(from, to Location)
}

func New(auth AuthState, log logging.Logger, routes ...Route) *Router {
	if len(routes) == 0 {
		routes = DefaultRoutes()
	}

	r := &Router{
		auth:   auth,
		log:    log,
		byName: make(map[string]Route, len(routes)),
		byPath: make(map[string]Route, len(routes)),
	}
	for _, rt := range routes {
		r.byName[rt.Name] = rt
		r.byPath[strings.ToLower(rt.Path)] = rt
	}
	return r
}

func (r *Router) resolve(loc Location) (Route, Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		rt Route
		ok bool
	)
	if loc.Name != "" {
		rt, ok = r.byName[loc.Name]
	} else {
		rt, ok = r.byPath[strings.ToLower(loc.Path)]
	}
	if !ok {
		return Route{}, Location{}, fmt.Errorf("%w: %s", ErrUnknownRoute, loc.Name+loc.Path)
	}

	loc.Name = rt.Name
	loc.Path = rt.Path
	return rt, loc, nil
}

// Push navigates to loc, following guard redirects, and returns where the
// router ended up.
func (r *Router) Push(ctx context.Context, loc Location) (Location, error) {
	target := loc

	for i := 0; ; i++ {
		if i > maxRedirects {
			return r.Current(), ErrTooManyRedirects
		}

		rt, resolved, err := r.resolve(target)
		if err != nil {
			return r.Current(), err
		}

		next, allowed := Guard(r.auth, rt, resolved)
		if allowed {
			r.commit(ctx, resolved)
			return resolved, nil
		}

		r.log.Debug(ctx, "navigation redirected", "to", resolved.FullPath(), "redirect", next.Name)
		target = next
	}
}

func (r *Router) commit(ctx context.Context, to Location) {
	r.mu.Lock()
	from := r.current
	r.current = to
	listeners := append([]func(from, to Location){}, r.listeners...)
	r.mu.Unlock()

	r.log.Debug(ctx, "navigated", "from", from.FullPath(), "to", to.FullPath())
	for _, fn := range listeners {
		fn(from, to)
	}
}

func (r *Router) Current() Location {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// OnNavigate registers fn to be called after every completed navigation.
func (r *Router) OnNavigate(fn func(from, to Location)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// ExpiredLogin is the location used when a session ends underneath the user.
func ExpiredLogin() Location {
	return Location{Name: Login, Query: map[string]string{QueryExpired: "1"}}
}
