package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Upload(ctx context.Context) error
	Download(ctx context.Context) error
	Share(ctx context.Context) error
	Files(ctx context.Context) error
	Users(ctx context.Context) error
	Audit(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the SecureCloudX CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Commands while not logged in: help, register, login, audit, exit.
// Commands while logged in: help, upload, download, share, files, users,
// audit, logout, exit.
//
// Any errors returned by command handlers are ignored here; handlers report
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {

	printlnFn("Welcome to SecureCloudX CLI (type 'help' for commands)")

	for {
		fmt.Printf("scx %s> ", statusFn())
		if !scanner.Scan() {
			break
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: upload, download, share, files, users, audit, logout, exit")
			} else {
				printlnFn("Available commands: register, login, audit, exit")
			}
		case "register":
			a.Register(ctx)
		case "login":
			a.Login(ctx)
		case "logout":
			a.Logout(ctx)
		case "upload":
			a.Upload(ctx)
		case "download":
			a.Download(ctx)
		case "share":
			a.Share(ctx)
		case "files":
			a.Files(ctx)
		case "users":
			a.Users(ctx)
		case "audit":
			a.Audit(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
