// Command profilesctl administers accounts directly in the database: the
// privileged operations the HTTP API does not expose.
//
//	profilesctl createsuperuser --email admin@ex.com --name Admin
//	profilesctl users --search jane
//	profilesctl deactivate jane@ex.com
//	profilesctl deleteuser --yes jane@ex.com
//
// It reads the same environment (and .env file) as the server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/term"
)

func main() {
	_ = godotenv.Load()

	app := newApp(appEnv{
		lookup:       os.LookupEnv,
		stdin:        os.Stdin,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		readPassword: readTerminalPassword,
	})

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// readTerminalPassword reads without echo when stdin is a terminal. ok is
// false when it is not (e.g. piped input), and the caller falls back to
// reading a plain line.
func readTerminalPassword() (pw []byte, ok bool, err error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, false, nil
	}
	pw, err = term.ReadPassword(fd)
	return pw, true, err
}
