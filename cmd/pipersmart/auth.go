package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pipersmart/internal/client/exchange"
	"pipersmart/internal/client/identity"
	"pipersmart/internal/client/session"
)

func newLoginCommand(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email == "" {
				email, err = promptLine("Email: ")
				if err != nil {
					return err
				}
			}
			if password == "" {
				password, err = promptPassword("Password: ")
				if err != nil {
					return err
				}
			}

			landing, err := a.manager.LoginLocal(cmd.Context(), email, password)
			if err != nil {
				return loginError(err)
			}

			printLanding(a, landing)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted if omitted)")
	return cmd
}

func newLoginWithCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "login-with <google|facebook>",
		Short:     "Sign in through a federated identity provider",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"google", "facebook"},
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := identity.Provider(args[0])

			landing, err := a.manager.LoginFederated(cmd.Context(), provider)
			if err != nil {
				// a dismissed consent flow is not an error worth showing
				if errors.Is(err, identity.ErrUserCancelled) {
					return nil
				}
				return loginError(err)
			}

			printLanding(a, landing)
			return nil
		},
	}
}

func newRegisterCommand(a *app) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if name == "" {
				name, err = promptLine("Name: ")
				if err != nil {
					return err
				}
			}
			if email == "" {
				email, err = promptLine("Email: ")
				if err != nil {
					return err
				}
			}
			if password == "" {
				password, err = promptPassword("Password: ")
				if err != nil {
					return err
				}
			}

			landing, err := a.manager.Register(cmd.Context(), name, email, password)
			if err != nil {
				return loginError(err)
			}

			printLanding(a, landing)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted if omitted)")
	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			wasAuthed := a.manager.IsAuthenticated()
			if err := a.manager.Logout(); err != nil {
				return err
			}
			if wasAuthed {
				fmt.Println("Logged out.")
			} else {
				fmt.Println("No active session.")
			}
			return nil
		},
	}
}

func newWhoAmICommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.manager.IsAuthenticated() {
				return errors.New("no active session; run 'pipersmart login'")
			}

			// verify against the backend rather than trusting the snapshot
			profile, err := a.client.Me(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Name:  %s\n", profile.Name)
			fmt.Printf("Email: %s\n", profile.Email)
			fmt.Printf("Role:  %s\n", profile.Role)
			if profile.Avatar != "" {
				fmt.Printf("Avatar: %s\n", profile.Avatar)
			}
			return nil
		},
	}
}

// loginError rewrites exchange failures into the messages shown to users.
func loginError(err error) error {
	switch {
	case errors.Is(err, exchange.ErrInvalidCredentials):
		return err
	case errors.Is(err, exchange.ErrServerUnreachable):
		return fmt.Errorf("%w; check your connection and the backend address", err)
	case errors.Is(err, identity.ErrProviderConflict):
		return errors.New("this email already signs in a different way; use that method instead")
	case errors.Is(err, session.ErrSuperseded):
		return nil
	default:
		return err
	}
}

func printLanding(a *app, landing session.Landing) {
	user := a.manager.User()
	if user == nil {
		return
	}
	fmt.Printf("Signed in as %s (%s)\n", user.Name, user.Email)
	if landing == session.LandingAdminDashboard {
		fmt.Println("Landing: admin dashboard")
	} else {
		fmt.Println("Landing: home")
	}
}

func promptLine(label string) (string, error) {
	fmt.Print(label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(label string) (string, error) {
	fmt.Print(label)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
