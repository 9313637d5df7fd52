package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"cabinetquote/internal/google"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize Drive and Gmail access and save the token file",
	Long: `Open Google's consent page for the OAuth client in the credentials file and
store the resulting refresh token where the server and 'quotekb build' look for it.`,
	Args: cobra.NoArgs,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	oauthCfg, err := google.ConfigFromCredentialsFile(cfg.Mail.CredentialsFile)
	if err != nil {
		return err
	}
	tok, err := google.RunInstalledAppFlow(ctx, oauthCfg, func(url string) {
		fmt.Println("Open this URL in your browser and approve access:")
		fmt.Println()
		fmt.Println("  " + url)
		fmt.Println()
		fmt.Println("Waiting for the authorization...")
	})
	if err != nil {
		return err
	}
	if err := google.WriteTokenFile(cfg.Mail.TokenFile, oauthCfg, tok); err != nil {
		return err
	}
	fmt.Printf("Token saved to %s\n", cfg.Mail.TokenFile)
	return nil
}
