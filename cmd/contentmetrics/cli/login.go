package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginEmail string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with a content metrics server",
	Long: `Authenticate as an administrator using email and password.
The token is stored in ~/.contentmetrics/token with 0600 permissions.

Example:
  contentmetrics login --server http://localhost:1337 --email admin@example.com`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Administrator email address")
	loginCmd.MarkFlagRequired("email")
}

func runLogin(cmd *cobra.Command, args []string) error {
	server := strings.TrimRight(flagServer, "/")
	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		return fmt.Errorf("--server must start with http:// or https://")
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	client := NewClientWithURL(server)
	fmt.Fprintf(os.Stderr, "Authenticating with %s...\n", server)

	token, err := client.Login(cmd.Context(), loginEmail, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := SaveToken(TokenData{Token: token, Server: server, Email: loginEmail}); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Logged in as %s\n", loginEmail)
	return nil
}

// readPassword prompts for a password without echoing input.
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	// Piped input.
	var password string
	if _, err := fmt.Fscanln(os.Stdin, &password); err != nil {
		return "", err
	}
	return password, nil
}
