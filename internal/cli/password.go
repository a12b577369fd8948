package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// PasswordReader asks for the password of user on host.
type PasswordReader func(host, user string) (string, error)

func terminalPassword(host, user string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no password given and stdin is not a terminal")
	}

	fmt.Fprintf(os.Stderr, "Enter password for host %s and user %s: ", host, user)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}
