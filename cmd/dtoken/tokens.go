package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var tokensFlags struct {
	clientConfig
	limit int
}

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "List recently issued tokens",
	Long:  `List recently issued tokens from a running server's token log.`,
	RunE:  runTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	addClientFlags(tokensCmd, &tokensFlags.clientConfig)
	tokensCmd.Flags().IntVar(&tokensFlags.limit, "limit", 50, "maximum number of tokens to list")
}

func runTokens(cmd *cobra.Command, args []string) error {
	c := tokensFlags.newClient()

	resp, err := c.ListTokens(tokensFlags.limit)
	if err != nil {
		return err
	}

	if len(resp.Tokens) == 0 {
		fmt.Println("No tokens found.")
		return nil
	}

	fmt.Printf("%-36s  %-7s  %-22s  %-6s  %s\n", "TOKEN", "METHOD", "CLIENT", "SOURCE", "CREATED")
	for _, t := range resp.Tokens {
		method := t.Method
		if method == "" {
			method = "-"
		}
		client := "-"
		if t.Client != nil {
			client = *t.Client
		}
		created := t.CreatedAt
		if parsed, err := time.Parse(time.RFC3339, t.CreatedAt); err == nil {
			created = parsed.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%-36s  %-7s  %-22s  %-6s  %s\n", t.Token, method, client, t.Source, created)
	}

	return nil
}
