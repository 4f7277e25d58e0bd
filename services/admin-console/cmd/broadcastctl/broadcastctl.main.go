// Command broadcastctl drives the broadcast composer from a terminal:
// list templates, render a preview, and send a template to a list of phones.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/admin-console/internal/config"
)

var (
	apiURL  string
	token   string
	timeout time.Duration
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "broadcastctl",
	Short:         "Compose and send WhatsApp template broadcasts",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cfg := config.Load()
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", cfg.BackendURL, "Broadcast backend base URL (or BROADCAST_API_URL)")
	rootCmd.PersistentFlags().StringVar(&token, "token", cfg.BackendToken, "Bearer token (or BROADCAST_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", cfg.BackendTimeout, "Backend request timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(templatesCmd, previewCmd, sendCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
