// Package commands implements the glearn CLI, an operator front-end over
// the analytics backend client.
package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gamelearn/analytics/pkg/client"
)

var (
	flagBackendURL string
	flagAPIKey     string
)

var rootCmd = &cobra.Command{
	Use:   "glearn",
	Short: "GameLearn analytics from the command line",
	Long: `glearn talks to the GameLearn analytics backend: mint dashboard embeds,
run report exports, check payment status and exercise session tracking.`,
}

func Execute() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBackendURL, "backend-url", "",
		"Backend base URL (default $GAMELEARN_BACKEND_URL)")
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "",
		"API key (default $GAMELEARN_API_KEY)")
}

// newClient builds a backend client from flags and environment.
func newClient() (*client.Client, error) {
	backendURL := flagBackendURL
	if backendURL == "" {
		backendURL = os.Getenv("GAMELEARN_BACKEND_URL")
	}
	apiKey := flagAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("GAMELEARN_API_KEY")
	}

	c, err := client.New(client.Options{
		BaseURL: backendURL,
		APIKey:  apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create client (set --backend-url/--api-key or GAMELEARN_BACKEND_URL/GAMELEARN_API_KEY): %w", err)
	}
	return c, nil
}
