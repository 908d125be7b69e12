package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/maykaila/memora/internal/api"
	"github.com/maykaila/memora/internal/avatar"
	"github.com/maykaila/memora/internal/identity"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "View and edit your profile",
	Long: `Show your profile and study streak, change your username or bio, upload a
profile picture, or delete your account data.

Examples:
  memora profile show
  memora profile update --bio "Learning Japanese"
  memora profile avatar ~/Pictures/me.png`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your profile",
	Args:  cobra.NoArgs,
	RunE:  signedIn(runProfileShow),
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Change your username or bio",
	Args:  cobra.NoArgs,
	RunE:  signedIn(runProfileUpdate),
}

var profileAvatarCmd = &cobra.Command{
	Use:   "avatar <image-file>",
	Short: "Upload a profile picture",
	Long: fmt.Sprintf(`Upload a PNG, JPEG, GIF or WebP image of at most %d MiB as your profile
picture. Requires storage.bucket and storage.credentials_file to be configured.`, avatar.MaxSize>>20),
	Args: cobra.ExactArgs(1),
	RunE: signedIn(runProfileAvatar),
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete your account data and sign out",
	Args:  cobra.NoArgs,
	RunE:  signedIn(runProfileDelete),
}

// pictureStore is an avatar.Uploader holding a client connection.
type pictureStore interface {
	avatar.Uploader
	Close() error
}

// uploaderFactory opens the picture bucket. Tests replace it.
var uploaderFactory = func(ctx context.Context, a *app) (pictureStore, error) {
	if a.cfg.Storage.Bucket == "" {
		return nil, StorageNotConfiguredError(nil)
	}
	u, err := avatar.NewGCSUploader(ctx, avatar.GCSConfig{
		Bucket:          a.cfg.Storage.Bucket,
		CredentialsFile: a.cfg.Storage.CredentialsFile,
		PublicBaseURL:   a.cfg.Storage.PublicBaseURL,
		Logger:          a.logger,
	})
	if err != nil {
		return nil, StorageNotConfiguredError(err)
	}
	return u, nil
}

func init() {
	profileUpdateCmd.Flags().String("username", "", "New username")
	profileUpdateCmd.Flags().String("bio", "", "New bio")

	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileUpdateCmd)
	profileCmd.AddCommand(profileAvatarCmd)
	profileCmd.AddCommand(profileDeleteCmd)

	rootCmd.AddCommand(profileCmd)
}

func runProfileShow(cmd *cobra.Command, args []string, a *app) error {
	p, _ := a.principal()
	user, err := a.api.GetUser(cmd.Context(), p.UID)
	if err != nil {
		return api.Coded(err)
	}
	return a.out.value(user, func(w io.Writer) {
		fmt.Fprintf(w, "%s <%s>\n", user.Username, user.Email)
		fmt.Fprintf(w, "  Role:    %s\n", user.Role)
		fmt.Fprintf(w, "  Streak:  %d days\n", user.Streak)
		if user.Bio != "" {
			fmt.Fprintf(w, "  Bio:     %s\n", user.Bio)
		}
		if user.ProfilePicture != "" {
			fmt.Fprintf(w, "  Picture: %s\n", user.ProfilePicture)
		}
	})
}

func runProfileUpdate(cmd *cobra.Command, args []string, a *app) error {
	req := api.UpdateProfileRequest{}
	req.Username, _ = cmd.Flags().GetString("username")
	req.Bio, _ = cmd.Flags().GetString("bio")
	if req.Username == "" && req.Bio == "" {
		return NewErrorWithSuggestions("nothing to update", nil, "Pass --username and/or --bio")
	}
	if err := a.api.UpdateProfile(cmd.Context(), req); err != nil {
		return api.Coded(err)
	}
	return a.out.message("Profile updated.", nil)
}

func runProfileAvatar(cmd *cobra.Command, args []string, a *app) error {
	ctx := cmd.Context()
	p, _ := a.principal()

	store, err := uploaderFactory(ctx, a)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := avatar.NewService(store, a.api, a.logger, a.metrics)
	url, err := svc.SetProfilePicture(ctx, p.UID, args[0])
	if err != nil {
		return api.Coded(err)
	}
	return a.out.message("Profile picture updated.", map[string]any{"url": url})
}

func runProfileDelete(cmd *cobra.Command, args []string, a *app) error {
	p, _ := a.principal()

	ok, err := a.confirmed("delete all data of " + p.Email)
	if err != nil {
		return err
	}
	if !ok {
		return a.out.message("Cancelled.", nil)
	}

	if err := a.api.DeleteUser(cmd.Context(), p.UID); err != nil {
		return api.Coded(err)
	}
	if err := a.auth.SignOut(cmd.Context()); err != nil {
		return identity.Coded(err)
	}
	return a.out.message(fmt.Sprintf("Deleted account data of %s and signed out.", p.Email), map[string]any{"uid": p.UID})
}
