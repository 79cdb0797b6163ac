package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/vaultledger/internal/infrastructure/config"
	"github.com/iho/vaultledger/internal/infrastructure/postgres"
	"github.com/iho/vaultledger/internal/infrastructure/signing"
)

var (
	baseURL string
	timeout time.Duration
)

// errUnbalanced signals a completed reconciliation that found drift.
var errUnbalanced = fmt.Errorf("ledger has discrepancies")

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vaultledger-cli",
		Short:         "VaultLedger CLI tool",
		Long:          `A command line interface for operating the VaultLedger balance service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the VaultLedger API")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}
	ledgerCmd.AddCommand(analyticsCmd(), reconcileCmd())

	root.AddCommand(ledgerCmd, hashCmd(), migrateCmd())
	return root
}

func analyticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Show the provider wallet against tracked balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, body, err := get(baseURL + "/api/v1/ledger/analytics")
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
}

func reconcileCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Replay transaction history against stored balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := baseURL + "/api/v1/ledger/reconciliation"
			if account != "" {
				url = baseURL + "/api/v1/accounts/" + account + "/reconciliation"
			}

			status, body, err := get(url)
			if err != nil && status != http.StatusConflict {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), body); err != nil {
				return err
			}
			if status == http.StatusConflict {
				return errUnbalanced
			}

			if account != "" {
				var result struct {
					IsReconciled bool `json:"is_reconciled"`
				}
				if err := json.Unmarshal(body, &result); err == nil && !result.IsReconciled {
					return errUnbalanced
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Reconcile a single account number")
	return cmd
}

func hashCmd() *cobra.Command {
	var secret, reference string

	cmd := &cobra.Command{
		Use:   "hash [fields...]",
		Short: "Compute the provider request hash for a reference and fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("PROVIDER_HASH_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("--secret or PROVIDER_HASH_SECRET is required")
			}
			fmt.Fprintln(cmd.OutOrStdout(), signing.RequestHash(reference, args, secret))
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "Hash secret (defaults to PROVIDER_HASH_SECRET)")
	cmd.Flags().StringVar(&reference, "reference", "", "Transaction reference")
	_ = cmd.MarkFlagRequired("reference")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	run := func(fn func(databaseURL, path string, logger zerolog.Logger) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).With().Timestamp().Logger()
			return fn(cfg.DatabaseURL, cfg.MigrationsPath, logger)
		}
	}

	cmd.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply all pending migrations", RunE: run(postgres.RunMigrations)},
		&cobra.Command{Use: "down", Short: "Roll back the last migration", RunE: run(postgres.RunMigrationsDown)},
	)
	return cmd
}

// get fetches url. A non-200 answer returns the body together with an error.
func get(url string) (int, []byte, error) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(url)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, body, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return resp.StatusCode, body, nil
}

func printJSON(w io.Writer, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
