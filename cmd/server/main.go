package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rl1809/storefront/internal/adapter/paystack"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/app"
	"github.com/rl1809/storefront/internal/config"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront payment service (Paystack checkout, Shopify fulfillment)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml, json or toml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	var memory bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := app.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var a *app.App
			if memory {
				logger.Warn("using in-memory stores, state is lost on exit")
				mem := storage.NewMemoryAdapter()
				gateway := paystack.NewClient(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey, cfg.Paystack.Timeout)
				a = app.NewWithStores(cfg, logger, app.Stores{Orders: mem, Carts: mem, Cache: mem}, gateway)
			} else {
				a, err = app.New(ctx, cfg, logger)
				if err != nil {
					return err
				}
			}
			defer a.Close()

			return a.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&memory, "memory", false, "keep orders, carts and cache in memory (development only)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the orders and carts tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			db, err := app.OpenMySQL(cmd.Context(), cfg.MySQL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := storage.NewMySQLAdapter(db).Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("schema up to date")
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [reference]",
		Short: "Verify a transaction with Paystack and apply it to its order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := app.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

			a, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			order, err := a.Payments.Verify(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("reconcile %s: %w", args[0], err)
			}
			fmt.Printf("order %s (%s): payment %s, status %s\n",
				order.ID, order.Reference, order.PaymentStatus, order.Status)
			return nil
		},
	}
}
