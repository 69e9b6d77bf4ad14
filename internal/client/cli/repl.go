package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the minimal command surface the REPL needs. App satisfies it;
// tests can provide a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Feed(ctx context.Context) error
	Like(ctx context.Context) error
	Comment(ctx context.Context) error
	Post(ctx context.Context) error
	Profile(ctx context.Context) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL reads a command per line and dispatches to a. Handler errors are
// reported by the handlers themselves; the loop only cares about I/O. Exits
// on EOF, "exit", or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("feed> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: feed, like, comment, post, profile, refresh, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}
		case "register":
			_ = a.Register(ctx)
		case "login":
			_ = a.Login(ctx)
		case "feed":
			_ = a.Feed(ctx)
		case "like":
			_ = a.Like(ctx)
		case "comment":
			_ = a.Comment(ctx)
		case "post":
			_ = a.Post(ctx)
		case "profile":
			_ = a.Profile(ctx)
		case "refresh":
			_ = a.Refresh(ctx)
		case "logout":
			_ = a.Logout(ctx)
		case "exit", "quit":
			return
		default:
			printlnFn("Unknown command. Type 'help' for the command list.")
		}
	}
}
