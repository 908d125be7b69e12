package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maykaila/memora/internal/api"
	"github.com/maykaila/memora/internal/identity"
	"github.com/maykaila/memora/internal/session"
	"github.com/maykaila/memora/internal/tui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your Memora account session",
	Long: `Sign in, create an account, sign out and check who you are signed in as.

The signed-in session is cached in ~/.memora/credentials.json so later commands
do not need your password. Tokens are refreshed automatically.

Examples:
  memora auth login --email ada@example.com
  memora auth register --email ada@example.com --username ada --role student
  memora auth status
  memora auth logout`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	Long: `Sign in with your email and password. Missing values are prompted for
when running in a terminal.

Examples:
  memora auth login --email ada@example.com`,
	RunE: runAuthLogin,
}

var authRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a student or teacher account",
	Long: `Create an account and its Memora profile, then sign in.

Examples:
  memora auth register --email ada@example.com --username ada --role teacher`,
	RunE: runAuthRegister,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and remove cached credentials",
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the signed-in account and its role",
	RunE:  runAuthStatus,
}

var authResetCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Email a password reset link",
	RunE:  runAuthReset,
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authRegisterCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authResetCmd)

	authLoginCmd.Flags().String("email", "", "Email address")
	authLoginCmd.Flags().String("password", "", "Password (prompted when omitted)")

	authRegisterCmd.Flags().String("email", "", "Email address")
	authRegisterCmd.Flags().String("password", "", "Password (prompted when omitted)")
	authRegisterCmd.Flags().String("username", "", "Display name")
	authRegisterCmd.Flags().String("role", "student", "Account role: student or teacher")

	authResetCmd.Flags().String("email", "", "Email address (required)")
	_ = authResetCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(authCmd)
}

// credentials reads --email and --password, prompting for what is missing.
func credentials(cmd *cobra.Command) (tui.Credentials, error) {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if email != "" && password != "" {
		return tui.Credentials{Email: email, Password: password}, nil
	}
	if !shouldPrompt() {
		if email == "" {
			return tui.Credentials{}, MissingInputError("email")
		}
		return tui.Credentials{}, MissingInputError("password")
	}
	return promptCredentials(email)
}

var promptCredentials = tui.PromptForCredentials

func runAuthLogin(cmd *cobra.Command, args []string) error {
	a, err := appFactory(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	creds, err := credentials(cmd)
	if err != nil {
		return err
	}

	p, err := a.auth.SignIn(cmd.Context(), creds.Email, creds.Password)
	if err != nil {
		return identity.Coded(err)
	}
	a.logger.Info("signed in", "uid", p.UID)

	snap, err := a.awaitSession(cmd.Context())
	if err != nil {
		return err
	}
	return printSession(a, snap)
}

func runAuthRegister(cmd *cobra.Command, args []string) error {
	a, err := appFactory(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	roleFlag, _ := cmd.Flags().GetString("role")
	role, err := session.ParseRole(roleFlag)
	if err != nil {
		return err
	}
	username, _ := cmd.Flags().GetString("username")
	if username == "" {
		if !shouldPrompt() {
			return MissingInputError("username")
		}
		if username, err = promptString(tui.Prompt{Message: "Username", Required: true}); err != nil {
			return err
		}
	}
	creds, err := credentials(cmd)
	if err != nil {
		return err
	}

	p, err := a.auth.SignUp(cmd.Context(), creds.Email, creds.Password)
	if err != nil {
		return identity.Coded(err)
	}
	err = a.api.CreateUser(cmd.Context(), api.CreateUserRequest{
		UID:      p.UID,
		Email:    p.Email,
		Username: username,
		Role:     strings.ToUpper(string(role)),
	})
	if err != nil {
		return NewErrorWithSuggestions(
			"account created but the profile could not be saved",
			api.Coded(err),
			"Run 'memora auth register' again with the same email after the backend recovers",
		)
	}
	a.logger.Info("registered", "uid", p.UID, "role", string(role))

	snap, err := a.awaitSession(cmd.Context())
	if err != nil {
		return err
	}
	return printSession(a, snap)
}

var promptString = tui.PromptForString

func runAuthLogout(cmd *cobra.Command, args []string) error {
	a, err := appFactory(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	p := a.auth.Current()
	if p == nil {
		return a.out.message("Not signed in.", nil)
	}
	if err := a.auth.SignOut(cmd.Context()); err != nil {
		return identity.Coded(err)
	}
	return a.out.message(fmt.Sprintf("Signed out %s.", p.Email), map[string]any{"email": p.Email})
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	a, err := appFactory(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.awaitSession(cmd.Context())
	if err != nil {
		return err
	}
	return printSession(a, snap)
}

func runAuthReset(cmd *cobra.Command, args []string) error {
	a, err := appFactory(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	email, _ := cmd.Flags().GetString("email")
	if err := a.auth.SendPasswordReset(cmd.Context(), email); err != nil {
		return identity.Coded(err)
	}
	return a.out.message(fmt.Sprintf("Password reset email sent to %s.", email), map[string]any{"email": email})
}

// sessionView is the printable form of a session snapshot.
type sessionView struct {
	Status string `json:"status" yaml:"status"`
	UID    string `json:"uid,omitempty" yaml:"uid,omitempty"`
	Email  string `json:"email,omitempty" yaml:"email,omitempty"`
	Role   string `json:"role,omitempty" yaml:"role,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

func printSession(a *app, snap session.Snapshot) error {
	v := sessionView{
		Status: snap.Status.String(),
		UID:    snap.UID,
		Email:  snap.Email,
		Role:   string(snap.Role),
	}
	if snap.Err != nil {
		v.Error = snap.Err.Error()
	}
	return a.out.value(v, func(w io.Writer) {
		switch snap.Status {
		case session.StatusSignedOut:
			fmt.Fprintln(w, "Not signed in.")
			fmt.Fprintln(w, "Use 'memora auth login' to sign in.")
		case session.StatusResolved:
			fmt.Fprintf(w, "Signed in as %s (%s)\n", snap.Email, snap.Role)
			fmt.Fprintf(w, "  UID:  %s\n", snap.UID)
			fmt.Fprintf(w, "  Home: %s\n", snap.Role.LandingName())
		default:
			fmt.Fprintf(w, "Signed in as %s, role unavailable\n", snap.Email)
			if snap.Err != nil {
				fmt.Fprintf(w, "  Error: %v\n", snap.Err)
			}
		}
	})
}
