package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error
	WhoAmI(ctx context.Context, args []string) error
	Goto(ctx context.Context, args []string) error
	Categories(ctx context.Context, args []string) error
	Products(ctx context.Context, args []string) error
	NextPage(ctx context.Context, args []string) error
	PrevPage(ctx context.Context, args []string) error
	Search(ctx context.Context, args []string) error
	PageSize(ctx context.Context, args []string) error
	AddProduct(ctx context.Context, args []string) error
	EditProduct(ctx context.Context, args []string) error
	DeleteProduct(ctx context.Context, args []string) error
	Upload(ctx context.Context, args []string) error
	Storage(ctx context.Context, args []string) error
}

const (
	guestHelp = "Available commands: register, login, goto <view>, storage, help, exit"
	userHelp  = "Available commands: whoami, categories, products [page], next, prev, search [text], " +
		"pagesize <n>, addproduct, editproduct <id>, deleteproduct <id>, upload <file>, goto <view>, storage, logout, help, exit"
)

// runREPL starts a simple read–eval–print loop for the storeadmin CLI.
//
// It reads a line from in, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF, when ctx is cancelled, or when the user types
// "exit" or "quit".
//
// Command handlers report their own failures to the user; the returned
// errors are only logged here so the loop stays resilient.
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader, out io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}

		fmt.Fprintf(out, "storeadmin %s> ", statusFn())
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(out)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var handler func(context.Context, []string) error

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(out, userHelp)
			} else {
				fmt.Fprintln(out, guestHelp)
			}
			continue
		case "register":
			handler = a.Register
		case "login":
			handler = a.Login
		case "logout":
			handler = a.Logout
		case "whoami":
			handler = a.WhoAmI
		case "goto":
			handler = a.Goto
		case "categories":
			handler = a.Categories
		case "products", "l", "list":
			handler = a.Products
		case "next":
			handler = a.NextPage
		case "prev":
			handler = a.PrevPage
		case "search":
			handler = a.Search
		case "pagesize":
			handler = a.PageSize
		case "addproduct":
			handler = a.AddProduct
		case "editproduct":
			handler = a.EditProduct
		case "deleteproduct":
			handler = a.DeleteProduct
		case "upload":
			handler = a.Upload
		case "storage":
			handler = a.Storage
		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return
		default:
			fmt.Fprintln(out, "Unknown command:", cmd)
			continue
		}

		_ = handler(ctx, args)
	}
}
