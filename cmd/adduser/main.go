// Command adduser registers an account from the terminal, for
// bootstrapping a fresh database without going through the API.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"depenses/internal/auth"
	"depenses/internal/store"

	"golang.org/x/term"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	username := fs.String("user", "", "Username")
	pinFlag := fs.String("pin", "", "PIN, 4 to 6 digits (optional, will prompt if omitted)")
	dbPath := fs.String("db", "./data/depenses.db", "Path to database file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" {
		fmt.Fprintln(stdout, "Usage: adduser -user <username> [-pin <pin>] [-db <db_path>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: user")
	}

	pin := *pinFlag
	if pin == "" {
		fmt.Fprint(stdout, "PIN: ")
		var err error
		pin, err = readPIN(stdin)
		if err != nil {
			return fmt.Errorf("failed to read PIN: %w", err)
		}
		fmt.Fprintln(stdout)
	}

	// Allow overriding db path via env var if the flag default is in use.
	if path := os.Getenv("DB_PATH"); path != "" && *dbPath == "./data/depenses.db" {
		*dbPath = path
	}

	ctx := context.Background()
	st := store.New(*dbPath, store.DefaultSchema)
	if err := st.Open(ctx); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	user, err := auth.NewManager(st).Register(ctx, *username, pin, "")
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %d\n", user.Username, user.ID)
	return nil
}

func readPIN(stdin io.Reader) (string, error) {
	// Read without echo when stdin is a terminal.
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePIN, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePIN), nil
	}

	// Fallback for non-terminal input (tests, pipes).
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
