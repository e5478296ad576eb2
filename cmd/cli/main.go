package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	postgresRepo "github.com/iho/famledger/internal/adapter/repository/postgres"
	"github.com/iho/famledger/internal/domain"
	"github.com/iho/famledger/internal/infrastructure/auth"
	"github.com/iho/famledger/internal/infrastructure/config"
	"github.com/iho/famledger/internal/infrastructure/eventpublisher"
	"github.com/iho/famledger/internal/infrastructure/logger"
	"github.com/iho/famledger/internal/infrastructure/postgres"
	"github.com/iho/famledger/internal/usecase"
)

var (
	baseURL string
	timeout time.Duration
	token   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "famledger-cli",
		Short:         "Family ledger CLI tool",
		Long:          `Administrative commands and API queries for the family ledger service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the ledger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("FAMLEDGER_TOKEN"), "Bearer token for the API")

	rootCmd.AddCommand(balanceCmd(), migrateCmd(), idempotencyCmd(), outboxCmd(), tokenCmd())
	return rootCmd
}

// Balance commands query the running API.
func balanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Account balance queries",
	}

	var from, to, strategy string
	addRange := func(c *cobra.Command) {
		c.Flags().StringVar(&from, "from", "", "First day, YYYY-MM-DD")
		c.Flags().StringVar(&to, "to", "", "Last day, YYYY-MM-DD")
	}

	history := &cobra.Command{
		Use:   "history ACCOUNT_ID",
		Short: "Daily balance history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := rangeQuery(from, to)
			if strategy != "" {
				q.Set("strategy", strategy)
			}
			return callAPI(cmd, http.MethodGet, "/api/v1/accounts/"+args[0]+"/balance/history", q)
		},
	}
	addRange(history)
	history.Flags().StringVar(&strategy, "strategy", "", "forward or reverse")

	verify := &cobra.Command{
		Use:   "verify ACCOUNT_ID",
		Short: "Compare both reconstruction strategies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return callAPI(cmd, http.MethodGet, "/api/v1/accounts/"+args[0]+"/balance/verify", rangeQuery(from, to))
		},
	}
	addRange(verify)

	materialize := &cobra.Command{
		Use:   "materialize ACCOUNT_ID",
		Short: "Persist daily balances for a range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return callAPI(cmd, http.MethodPost, "/api/v1/accounts/"+args[0]+"/balance/materialize", rangeQuery(from, to))
		},
	}
	addRange(materialize)

	summary := &cobra.Command{
		Use:   "summary ACCOUNT_ID",
		Short: "Current settled, pending and available balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return callAPI(cmd, http.MethodGet, "/api/v1/accounts/"+args[0]+"/balance", nil)
		},
	}

	cmd.AddCommand(history, verify, materialize, summary)
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			return postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return fmt.Errorf("--steps must be positive")
			}
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			return postgres.RunMigrationsDown(cfg.DatabaseURL, cfg.MigrationsPath, steps, log)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")

	cmd.AddCommand(up, down)
	return cmd
}

func idempotencyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "idempotency",
		Short: "Idempotency record maintenance",
	}

	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired idempotency records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.DatabaseTimeout)
			defer cancel()

			pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, 2, 1)
			if err != nil {
				return err
			}
			defer pool.Close()

			janitor := usecase.NewJanitor(usecase.CleanupConfig{
				Store:  postgresRepo.NewIdempotencyStore(pool),
				Logger: log,
			})
			removed, err := janitor.CleanupIdempotency(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired records\n", removed)
			return nil
		},
	}

	cmd.AddCommand(cleanup)
	return cmd
}

func outboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Outbox maintenance",
	}

	flush := &cobra.Command{
		Use:   "flush",
		Short: "Publish every pending outbox event once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			pool, err := postgres.NewPool(cmd.Context(), cfg.DatabaseURL, 2, 1)
			if err != nil {
				return err
			}
			defer pool.Close()

			var publisher eventpublisher.Publisher = eventpublisher.NewLogPublisher(log)
			if cfg.KafkaEnabled() {
				kafka := eventpublisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
				defer kafka.Close()
				publisher = kafka
			}

			published, err := eventpublisher.NewEventPublisher(eventpublisher.Config{
				OutboxRepo: postgresRepo.NewOutboxRepository(pool),
				Publisher:  publisher,
				Logger:     log,
				BatchSize:  cfg.OutboxBatchSize,
			}).Flush(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d events\n", published)
			return nil
		},
	}

	cmd.AddCommand(flush)
	return cmd
}

func tokenCmd() *cobra.Command {
	var secret, familyID string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token USER_ID",
		Short: "Issue an API token for a family member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret or JWT_SECRET is required")
			}
			signed, err := auth.NewJWTManager(secret, ttl).Generate(domain.Actor{UserID: args[0], FamilyID: familyID})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "Signing secret")
	cmd.Flags().StringVar(&familyID, "family", "", "Family id carried in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load configuration: %w", err)
	}
	log := logger.NewWithWriter(logger.Config{Level: cfg.LogLevel, Format: "console"}, os.Stderr)
	return cfg, log, nil
}

func rangeQuery(from, to string) url.Values {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	return q
}

func callAPI(cmd *cobra.Command, method, path string, query url.Values) error {
	target := baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(cmd.Context(), method, target, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	var result any
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func printJSON(w io.Writer, v any) error {
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
