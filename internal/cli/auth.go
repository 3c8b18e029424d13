package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tessro/riffcord/internal/browser"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Discord authentication",
	Long:  `Commands for signing in with Discord. The session identifies you to the bot for queue attribution.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with Discord",
	Long:  `Opens a browser to sign in with Discord using the OAuth PKCE flow.`,
	RunE:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored Discord session",
	Long:  `Removes the stored Discord tokens from the local machine.`,
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	Long:  `Shows who is signed in and when the access token expires.`,
	RunE:  runAuthStatus,
}

func init() {
	authCmd.Annotations = localOnly
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	sessions, err := newAuth()
	if err != nil {
		return err
	}

	if !JSONOutput() {
		fmt.Println("Opening browser for Discord authentication...")
	}
	session, err := sessions.Login(cmd.Context(), authConfig().CallbackAddr(), browser.Open, func(authURL string) {
		fmt.Printf("Could not open browser automatically.\n")
		fmt.Printf("Please open this URL in your browser:\n\n%s\n\n", authURL)
	})
	if err != nil {
		return err
	}

	if JSONOutput() {
		printJSON(map[string]any{
			"status":   "authenticated",
			"user_id":  session.User.ID,
			"username": session.User.Username,
		})
	} else {
		fmt.Printf("Successfully signed in as %s\n", session.User.Username)
	}
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	sessions, err := newAuth()
	if err != nil {
		return err
	}

	if sessions.Session() == nil {
		if JSONOutput() {
			printJSON(map[string]string{"status": "not_authenticated"})
		} else {
			fmt.Println("Not signed in to Discord.")
		}
		return nil
	}

	if err := sessions.Logout(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if JSONOutput() {
		printJSON(map[string]string{"status": "logged_out"})
	} else {
		fmt.Println("Signed out of Discord.")
	}
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	sessions, err := newAuth()
	if err != nil {
		return err
	}

	session := sessions.Session()
	if session == nil || session.Token == nil {
		if JSONOutput() {
			printJSON(map[string]any{"authenticated": false})
		} else {
			fmt.Println("Not signed in to Discord.")
			fmt.Println("Run 'riffcord auth login' to sign in.")
		}
		return nil
	}

	// AccessToken refreshes an expired token when it can.
	_, tokenErr := sessions.AccessToken(cmd.Context())
	session = sessions.Session()

	if JSONOutput() {
		out := map[string]any{
			"authenticated": true,
			"expired":       tokenErr != nil,
			"expires_at":    session.Token.ExpiresAt,
		}
		if session.User != nil {
			out["user_id"] = session.User.ID
			out["username"] = session.User.Username
		}
		if tokenErr != nil {
			out["error"] = tokenErr.Error()
		}
		printJSON(out)
		return nil
	}

	if session.User != nil {
		fmt.Printf("Signed in as: %s\n", session.User.Username)
	}
	if tokenErr != nil {
		fmt.Printf("Token may be expired or invalid: %v\n", tokenErr)
		fmt.Println("Run 'riffcord auth login' to sign in again.")
		return nil
	}
	fmt.Printf("Token expires: %s\n", session.Token.ExpiresAt.Format(time.RFC3339))
	return nil
}
