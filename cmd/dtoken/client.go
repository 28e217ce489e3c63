package main

import (
	"os"

	"github.com/ghax-org/dtoken/internal/client"
	"github.com/spf13/cobra"
)

type clientConfig struct {
	apiURL string
	secret string
}

func addClientFlags(cmd *cobra.Command, cfg *clientConfig) {
	cmd.Flags().StringVar(&cfg.apiURL, "api-url",
		getEnv("DTOKEN_API_URL", "http://localhost:8081"), "API server URL")
	cmd.Flags().StringVar(&cfg.secret, "api-secret",
		os.Getenv("DTOKEN_API_SECRET"), "API bearer secret, if the server requires one")
}

func (cfg *clientConfig) newClient() *client.Client {
	return client.NewClient(cfg.apiURL, cfg.secret)
}
