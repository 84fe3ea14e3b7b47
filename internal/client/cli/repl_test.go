package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool

	calls []string
	args  [][]string
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	return nil
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Register(ctx context.Context, args []string) error {
	return f.record("register", args)
}
func (f *fakeExec) Login(ctx context.Context, args []string) error {
	f.loggedIn = true
	return f.record("login", args)
}
func (f *fakeExec) Logout(ctx context.Context, args []string) error {
	f.loggedIn = false
	return f.record("logout", args)
}
func (f *fakeExec) WhoAmI(ctx context.Context, args []string) error { return f.record("whoami", args) }
func (f *fakeExec) Goto(ctx context.Context, args []string) error   { return f.record("goto", args) }
func (f *fakeExec) Categories(ctx context.Context, args []string) error {
	return f.record("categories", args)
}
func (f *fakeExec) Products(ctx context.Context, args []string) error {
	return f.record("products", args)
}
func (f *fakeExec) NextPage(ctx context.Context, args []string) error { return f.record("next", args) }
func (f *fakeExec) PrevPage(ctx context.Context, args []string) error { return f.record("prev", args) }
func (f *fakeExec) Search(ctx context.Context, args []string) error   { return f.record("search", args) }
func (f *fakeExec) PageSize(ctx context.Context, args []string) error {
	return f.record("pagesize", args)
}
func (f *fakeExec) AddProduct(ctx context.Context, args []string) error {
	return f.record("addproduct", args)
}
func (f *fakeExec) EditProduct(ctx context.Context, args []string) error {
	return f.record("editproduct", args)
}
func (f *fakeExec) DeleteProduct(ctx context.Context, args []string) error {
	return f.record("deleteproduct", args)
}
func (f *fakeExec) Upload(ctx context.Context, args []string) error { return f.record("upload", args) }
func (f *fakeExec) Storage(ctx context.Context, args []string) error {
	return f.record("storage", args)
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	input := strings.Join([]string{
		"help",
		"login",
		"help",
		"",
		"products 2",
		"l",
		"next",
		"prev",
		"search red shoes",
		"pagesize 4",
		"addproduct",
		"editproduct 7",
		"deleteproduct 7",
		"upload /tmp/a.png",
		"categories",
		"whoami",
		"goto /products",
		"storage",
		"foobar",
		"logout",
		"register",
		"exit",
		"login",
	}, "\n")

	exec := &fakeExec{}
	var out bytes.Buffer
	runREPL(context.Background(), exec, func() string { return "(status)" }, rdr(input), &out)

	assert.Equal(t, []string{
		"login", "products", "products", "next", "prev", "search", "pagesize",
		"addproduct", "editproduct", "deleteproduct", "upload", "categories",
		"whoami", "goto", "storage", "logout", "register",
	}, exec.calls, "nothing after exit runs")

	assert.Equal(t, []string{"2"}, exec.args[1])
	assert.Equal(t, []string{"red", "shoes"}, exec.args[5])

	s := out.String()
	assert.Contains(t, s, guestHelp)
	assert.Contains(t, s, userHelp)
	assert.Contains(t, s, "Unknown command: foobar")
	assert.Contains(t, s, "storeadmin (status)> ")
	assert.True(t, strings.HasSuffix(s, "Bye!\n"))
}

func TestRunREPL_EOF(t *testing.T) {
	exec := &fakeExec{}
	var out bytes.Buffer
	runREPL(context.Background(), exec, func() string { return "" }, rdr("whoami"), &out)

	assert.Equal(t, []string{"whoami"}, exec.calls, "a final line without newline still runs")
}

func TestRunREPL_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &fakeExec{}
	var out bytes.Buffer
	runREPL(ctx, exec, func() string { return "" }, rdr("login\n"), &out)

	assert.Empty(t, exec.calls)
}
