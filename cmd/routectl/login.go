package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mesfabric/routecraft/internal/client"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginTOTP string

var loginCmd = &cobra.Command{
	Use:   "login <server-url>",
	Short: "Log in to a RouteCraft server",
	Long: `Authenticates against a RouteCraft server and stores the issued token.

Examples:
  routectl login http://localhost:8470
  routectl login https://routes.company.com --totp 123456`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginTOTP, "totp", "", "Two-factor code (TOTP or backup code)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	serverURL := strings.TrimRight(args[0], "/")

	if !strings.HasPrefix(serverURL, "http://") && !strings.HasPrefix(serverURL, "https://") {
		return fmt.Errorf("server URL must start with http:// or https://")
	}

	fmt.Print("Username: ")
	var username string
	if _, err := fmt.Scanln(&username); err != nil {
		return fmt.Errorf("reading username: %w", err)
	}

	fmt.Print("Password: ")
	passBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	session := client.NewSession(client.New(serverURL, ""))
	result, err := session.Login(context.Background(), username, string(passBytes), loginTOTP)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if result.Requires2FA {
		fmt.Print("Two-factor code: ")
		var code string
		if _, err := fmt.Scanln(&code); err != nil {
			return fmt.Errorf("reading code: %w", err)
		}
		if _, err := session.Login(context.Background(), username, string(passBytes), code); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
	}

	if err := saveCredentials(&credentials{
		ServerURL: serverURL,
		Token:     session.Client().Token(),
		Username:  username,
	}); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Logged in to %s as %s\n", serverURL, username)
	return nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and discard the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, creds, err := apiClient()
		if err == nil {
			session := client.NewSession(c)
			// Best-effort server notification; the stored token is removed
			// either way.
			_ = session.Logout(context.Background())
			_ = creds
		}
		if err := removeCredentials(); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current user",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := apiClient()
		if err != nil {
			return err
		}
		session := client.NewSession(c)
		if err := session.Bootstrap(context.Background()); err != nil {
			return err
		}
		if session.State() != client.SessionAuthenticated {
			return fmt.Errorf("token expired, run: routectl login <server-url>")
		}
		user := session.User()
		fmt.Printf("Username: %s\n", user.Username)
		fmt.Printf("Email:    %s\n", user.Email)
		fmt.Printf("Roles:    %s\n", strings.Join(user.Roles, ", "))
		return nil
	},
}
