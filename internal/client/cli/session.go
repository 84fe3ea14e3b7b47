package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/storeadmin/internal/client/models"
	"github.com/dmitrijs2005/storeadmin/internal/client/router"
	"github.com/dmitrijs2005/storeadmin/internal/client/services"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

const defaultRole = "customer"

// Register prompts for the account fields and creates the account. It does
// not log in; on success the login view is opened.
func (a *App) Register(ctx context.Context, _ []string) error {
	if !a.navigate(ctx, router.Register) {
		return nil
	}

	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	role, err := getSimpleText(a.reader, "Enter role (admin, customer) ["+defaultRole+"]", a.out)
	if err != nil {
		return err
	}
	if role == "" {
		role = defaultRole
	}

	user, err := a.session.Register(ctx, models.RegisterForm{
		Username: username,
		Email:    email,
		Password: password,
		Role:     role,
	})
	if err != nil {
		a.notify.Error(err.Error())
		return err
	}

	a.notify.Success(fmt.Sprintf("Account created for %s. Log in to continue.", user.Email))
	_, err = a.router.Push(ctx, router.Location{Name: router.Login})
	return err
}

// Login prompts for credentials and signs in. A redirect left by the
// navigation guard is followed afterwards; otherwise the dashboard opens.
func (a *App) Login(ctx context.Context, _ []string) error {
	if !a.navigate(ctx, router.Login) {
		return nil
	}
	pending := a.router.Current().Query[router.QueryRedirect]

	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}

	user, err := a.session.Login(ctx, models.LoginCredentials{Email: email, Password: password})
	if err != nil {
		var invalid *services.InvalidCredentialsError
		if errors.As(err, &invalid) {
			a.notify.Error("Invalid email or password.")
		} else {
			a.notify.Error(err.Error())
		}
		return err
	}

	a.notify.Success(fmt.Sprintf("Welcome, %s.", displayName(user.Name, user.Email)))

	dest := router.Location{Name: router.Dashboard}
	if pending != "" {
		dest = router.ParseLocation(pending)
	}
	landed, err := a.router.Push(ctx, dest)
	if err != nil {
		a.notify.Error(err.Error())
		return err
	}
	fmt.Fprintln(a.out, "Now at", landed.FullPath())
	return nil
}

// Logout ends the session here and in every other process sharing the
// storage.
func (a *App) Logout(ctx context.Context, _ []string) error {
	if !a.session.IsAuthenticated() {
		a.notify.Warning("Not logged in.")
		return nil
	}
	if err := a.session.Logout(ctx); err != nil {
		a.notify.Error(err.Error())
		return err
	}
	a.notify.Success("Logged out.")
	_, err := a.router.Push(ctx, router.Location{Name: router.Login})
	return err
}

// WhoAmI shows the signed-in profile on the dashboard view.
func (a *App) WhoAmI(ctx context.Context, _ []string) error {
	if !a.navigate(ctx, router.Dashboard) {
		return nil
	}

	u := a.session.User()
	if u == nil {
		a.notify.Warning("No profile loaded.")
		return nil
	}

	fmt.Fprintf(a.out, "ID:     %d\n", u.ID)
	fmt.Fprintf(a.out, "Name:   %s\n", u.Name)
	fmt.Fprintf(a.out, "Email:  %s\n", u.Email)
	fmt.Fprintf(a.out, "Role:   %s\n", u.Role)
	if u.Avatar != "" {
		fmt.Fprintf(a.out, "Avatar: %s\n", u.Avatar)
	}

	if t := a.session.Tokens(); t != nil && t.AccessToken == services.LocalAccessToken {
		fmt.Fprintln(a.out, "Session: local (cached registration)")
	} else if exp, ok := a.session.SessionExpiry(); ok {
		fmt.Fprintf(a.out, "Session: expires %s (in %s)\n", exp.Local().Format(time.RFC1123), time.Until(exp).Round(time.Second))
	}
	return nil
}

// Goto navigates to a view by name ("products") or path ("/products?x=1").
func (a *App) Goto(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.notify.Warning("usage: goto <view>")
		return nil
	}

	target := router.Location{Name: args[0]}
	if strings.HasPrefix(args[0], "/") {
		target = router.ParseLocation(args[0])
	}

	landed, err := a.router.Push(ctx, target)
	if err != nil {
		a.notify.Error(err.Error())
		return err
	}
	fmt.Fprintln(a.out, "Now at", landed.FullPath())
	return nil
}

// Storage lists the slots held in the local session database.
func (a *App) Storage(ctx context.Context, _ []string) error {
	if !a.slots.Available() {
		fmt.Fprintln(a.out, "No persistent storage configured.")
		return nil
	}

	keys, err := a.slots.Keys(ctx)
	if err != nil {
		a.notify.Error(err.Error())
		return err
	}
	if len(keys) == 0 {
		fmt.Fprintln(a.out, "Storage is empty.")
		return nil
	}

	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	slices.Sort(names)
	for _, k := range names {
		fmt.Fprintf(a.out, "%-20s %d bytes\n", k, keys[k])
	}
	return nil
}
