package router

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/storeadmin/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct{ ok bool }

func (f *fakeAuth) IsAuthenticated() bool { return f.ok }

func TestGuard(t *testing.T) {
	protected := Route{Name: Products, Path: "/products", Meta: Meta{RequiresAuth: true}}
	guest := Route{Name: Login, Path: "/login", Meta: Meta{RequiresGuest: true}}
	open := Route{Name: "about", Path: "/about"}

	tests := []struct {
		name    string
		authed  bool
		route   Route
		loc     Location
		allowed bool
		want    Location
	}{
		{
			name:  "protected while anonymous redirects to login with redirect",
			route: protected, loc: Location{Name: Products, Path: "/products", Query: map[string]string{"page": "2"}},
			want: Location{Name: Login, Query: map[string]string{QueryRedirect: "/products?page=2"}},
		},
		{
			name: "protected while authenticated allowed", authed: true,
			route: protected, loc: Location{Name: Products, Path: "/products"},
			allowed: true, want: Location{Name: Products, Path: "/products"},
		},
		{
			name: "guest-only while authenticated goes to dashboard", authed: true,
			route: guest, loc: Location{Name: Login, Path: "/login"},
			want: Location{Name: Dashboard},
		},
		{
			name:  "guest-only while anonymous allowed",
			route: guest, loc: Location{Name: Login, Path: "/login"},
			allowed: true, want: Location{Name: Login, Path: "/login"},
		},
		{
			name:  "unguarded always allowed",
			route: open, loc: Location{Name: "about", Path: "/about"},
			allowed: true, want: Location{Name: "about", Path: "/about"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, allowed := Guard(&fakeAuth{ok: tt.authed}, tt.route, tt.loc)
			assert.Equal(t, tt.allowed, allowed)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPush_RedirectsAnonymousToLogin(t *testing.T) {
	r := New(&fakeAuth{}, logging.Nop())

	got, err := r.Push(context.Background(), Location{Path: "/Products", Query: map[string]string{"page": "3"}})
	require.NoError(t, err)
	assert.Equal(t, Login, got.Name)
	assert.Equal(t, "/products?page=3", got.Query[QueryRedirect])
	assert.Equal(t, got, r.Current())
}

func TestPush_AuthenticatedGuestRouteGoesToDashboard(t *testing.T) {
	r := New(&fakeAuth{ok: true}, logging.Nop())

	got, err := r.Push(context.Background(), Location{Name: Register})
	require.NoError(t, err)
	assert.Equal(t, Dashboard, got.Name)
	assert.Equal(t, "/dashboard", got.Path)
}

func TestPush_UnknownRoute(t *testing.T) {
	r := New(&fakeAuth{}, logging.Nop())

	_, err := r.Push(context.Background(), Location{Name: "nowhere"})
	assert.ErrorIs(t, err, ErrUnknownRoute)
}

func TestPush_RedirectLoopIsBounded(t *testing.T) {
	// login requires auth and dashboard requires guest: the guard can never settle.
	routes := []Route{
		{Name: Login, Path: "/login", Meta: Meta{RequiresAuth: true}},
		{Name: Dashboard, Path: "/dashboard", Meta: Meta{RequiresGuest: true}},
	}
	auth := &fakeAuth{}
	r := New(auth, logging.Nop(), routes...)

	_, err := r.Push(context.Background(), Location{Name: Login})
	assert.ErrorIs(t, err, ErrTooManyRedirects)
}

func TestOnNavigate(t *testing.T) {
	r := New(&fakeAuth{}, logging.Nop())

	var seen []string
	r.OnNavigate(func(from, to Location) { seen = append(seen, from.Name+">"+to.Name) })

	_, err := r.Push(context.Background(), Location{Name: Register})
	require.NoError(t, err)
	_, err = r.Push(context.Background(), ExpiredLogin())
	require.NoError(t, err)

	assert.Equal(t, []string{">register", "register>login"}, seen)
	assert.Equal(t, "1", r.Current().Query[QueryExpired])
}

func TestLocation_FullPathAndParse(t *testing.T) {
	loc := Location{Path: "/products", Query: map[string]string{"title": "red shoe", "page": "2"}}
	full := loc.FullPath()
	assert.Equal(t, "/products?page=2&title=red+shoe", full)

	parsed := ParseLocation(full)
	assert.Equal(t, loc, parsed)

	assert.Equal(t, Location{Path: "/dashboard"}, ParseLocation("/dashboard"))
}
