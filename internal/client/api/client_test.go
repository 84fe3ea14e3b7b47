package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/dmitrijs2005/storeadmin/internal/client/fakeapi"
	"github.com/dmitrijs2005/storeadmin/internal/client/models"
	"github.com/dmitrijs2005/storeadmin/internal/client/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	logouts  int
	err      error
	onLogout func()
}

func (f *fakeSession) Logout(ctx context.Context) error {
	f.logouts++
	if f.onLogout != nil {
		f.onLogout()
	}
	return f.err
}

type fakeNav struct {
	pushed []router.Location
	err    error
}

func (f *fakeNav) Push(ctx context.Context, to router.Location) (router.Location, error) {
	f.pushed = append(f.pushed, to)
	return to, f.err
}

func newClient(t *testing.T, srv *fakeapi.Server, token *string) *Client {
	t.Helper()
	c, err := New(Options{
		BaseURL: srv.URL,
		Tokens: func(ctx context.Context) string {
			if token == nil {
				return ""
			}
			return *token
		},
	})
	require.NoError(t, err)
	return c
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := New(Options{BaseURL: "::not a url"})
	require.Error(t, err)
}

func TestBearerInjectedWhenTokenPresent(t *testing.T) {
	srv := fakeapi.New(t)
	token := "abc"
	c := newClient(t, srv, &token)

	_, err := c.Categories(context.Background())
	require.NoError(t, err)

	calls := srv.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer abc", calls[0].Authorization)
}

func TestNoAuthorizationWithoutToken(t *testing.T) {
	srv := fakeapi.New(t)
	c := newClient(t, srv, nil)

	_, err := c.Categories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, srv.Calls()[0].Authorization)
}

func TestLoginAndProfile(t *testing.T) {
	srv := fakeapi.New(t)
	srv.SeedUser("john@mail.com", "changeme", "John", "admin")

	var token string
	c := newClient(t, srv, &token)
	ctx := context.Background()

	tokens, err := c.Login(ctx, models.LoginCredentials{Email: "john@mail.com", Password: "changeme"})
	require.NoError(t, err)
	require.NotEmpty(t, tokens.AccessToken)
	token = tokens.AccessToken

	p, err := c.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "John", p.Name)
	assert.Equal(t, "admin", p.Role)
}

func TestErrorMapping(t *testing.T) {
	srv := fakeapi.New(t)
	c := newClient(t, srv, nil)

	_, err := c.CreateUser(context.Background(), models.CreateUserPayload{Name: "x", Email: "nope"})
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "email must be an email; password should not be empty", apiErr.Message)
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "POST /users/: 400 Bad Request")
}

func TestUnavailable(t *testing.T) {
	srv := fakeapi.New(t)
	c := newClient(t, srv, nil)
	srv.Close()

	_, err := c.Categories(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestUnauthorizedHandler_LogsOutRedirectsAndReturnsOriginalError(t *testing.T) {
	srv := fakeapi.New(t)
	token := "stale"
	c := newClient(t, srv, &token)

	sess := &fakeSession{err: errors.New("local failure is swallowed")}
	nav := &fakeNav{}
	require.NoError(t, c.InstallUnauthorizedHandler(
		func() SessionTerminator { return sess },
		func() Navigator { return nav },
	))

	_, err := c.Profile(context.Background())

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, 1, sess.logouts)
	require.Len(t, nav.pushed, 1)
	assert.Equal(t, router.ExpiredLogin(), nav.pushed[0])
}

func TestUnauthorizedHandler_IgnoresAnonymousRequests(t *testing.T) {
	srv := fakeapi.New(t)
	c := newClient(t, srv, nil)

	sess := &fakeSession{}
	nav := &fakeNav{}
	require.NoError(t, c.InstallUnauthorizedHandler(
		func() SessionTerminator { return sess },
		func() Navigator { return nav },
	))

	_, err := c.Login(context.Background(), models.LoginCredentials{Email: "who@x.com", Password: "pw"})
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, sess.logouts)
	assert.Empty(t, nav.pushed)
}

func TestUnauthorizedHandler_NotReentrant(t *testing.T) {
	srv := fakeapi.New(t)
	token := "stale"
	c := newClient(t, srv, &token)

	nav := &fakeNav{}
	sess := &fakeSession{}
	// logout itself hits a 401 endpoint; that must not recurse
	sess.onLogout = func() { _ = c.Logout(context.Background()) }

	require.NoError(t, c.InstallUnauthorizedHandler(
		func() SessionTerminator { return sess },
		func() Navigator { return nav },
	))

	_, err := c.Profile(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, sess.logouts)
	assert.Len(t, nav.pushed, 1)
}

func TestUnauthorizedHandler_IgnoresLogoutEndpoint(t *testing.T) {
	srv := fakeapi.New(t)
	token := "local-access-token"
	c := newClient(t, srv, &token)

	sess := &fakeSession{}
	nav := &fakeNav{}
	require.NoError(t, c.InstallUnauthorizedHandler(
		func() SessionTerminator { return sess },
		func() Navigator { return nav },
	))

	err := c.Logout(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, sess.logouts)
	assert.Empty(t, nav.pushed)
}

func TestUnauthorizedHandler_InstalledOnce(t *testing.T) {
	srv := fakeapi.New(t)
	c := newClient(t, srv, nil)

	require.NoError(t, c.InstallUnauthorizedHandler(nil, nil))
	assert.ErrorIs(t, c.InstallUnauthorizedHandler(nil, nil), ErrHandlerInstalled)
}

func TestProductsPagingAndSearch(t *testing.T) {
	srv := fakeapi.New(t)
	srv.SeedProducts(5)
	c := newClient(t, srv, nil)
	ctx := context.Background()

	page, err := c.Products(ctx, ProductQuery{Paged: true, Offset: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Product 3", page[0].Title)

	all, err := c.Products(ctx, ProductQuery{Title: "product 4"})
	require.NoError(t, err)
	require.Len(t, all, 1)

	calls := srv.Calls()
	assert.Equal(t, "limit=2&offset=2", calls[0].Query)
	assert.Equal(t, "title=product+4", calls[1].Query)
}

func TestProductCRUD(t *testing.T) {
	srv := fakeapi.New(t)
	c := newClient(t, srv, nil)
	ctx := context.Background()

	created, err := c.CreateProduct(ctx, models.CreateProductPayload{Title: "Hat", Price: 5, CategoryID: 2, Images: []string{"https://img/hat.png"}})
	require.NoError(t, err)
	assert.Equal(t, "Electronics", created.Category.Name)

	title := "Cap"
	updated, err := c.UpdateProduct(ctx, created.ID, models.UpdateProductPayload{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Cap", updated.Title)
	assert.Equal(t, 5.0, updated.Price)

	require.NoError(t, c.DeleteProduct(ctx, created.ID))
	err = c.DeleteProduct(ctx, created.ID)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestUploadFile(t *testing.T) {
	srv := fakeapi.New(t)
	c := newClient(t, srv, nil)

	up, err := c.UploadFile(context.Background(), "/tmp/shoe.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "shoe.png", up.OriginalName)
	assert.Equal(t, srv.URL+"/files/up-shoe.png", up.Location)
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "bad creds", MessageOf(&Error{Status: 401, Message: "bad creds"}, "fallback"))
	assert.Equal(t, "boom", MessageOf(errors.New("boom"), "fallback"))
	assert.Equal(t, "fallback", MessageOf(nil, "fallback"))
	assert.Contains(t, MessageOf(&Error{Method: "GET", Path: "/x", Status: 500}, "fallback"), "GET /x: 500")
}

func TestServerMessage(t *testing.T) {
	assert.Equal(t, "one", serverMessage([]byte(`{"message":"one"}`)))
	assert.Equal(t, "a; b", serverMessage([]byte(`{"message":["a","b"]}`)))
	assert.Equal(t, "Not Found", serverMessage([]byte(`{"error":"Not Found"}`)))
	assert.Empty(t, serverMessage([]byte(`<html>`)))
}
