package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smallbiznis/landedcost/internal/app"
	recalculationdomain "github.com/smallbiznis/landedcost/internal/recalculation/domain"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var startTimeout time.Duration

var rootCmd = &cobra.Command{
	Use:          "landedcost",
	Short:        "Landed cost allocation and tariff service",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		fx.New(
			fx.StartTimeout(startTimeout),
			app.Server(),
		).Run()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd.Context(), app.Infrastructure())
	},
}

var recalculateCmd = &cobra.Command{
	Use:   "recalculate",
	Short: "Reallocate every cost pool and recompute duty pools, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			svc recalculationdomain.Service
			log *zap.Logger
		)
		return runOnce(cmd.Context(),
			app.Infrastructure(),
			app.Domains(),
			fx.Populate(&svc, &log),
			fx.Invoke(func(lc fx.Lifecycle) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						summary, err := svc.RecalculateAll(ctx)
						if err != nil {
							return err
						}
						log.Info("recalculation finished",
							zap.Int("pools_reallocated", summary.PoolsReallocated),
							zap.Int("invoices_processed", summary.InvoicesProcessed),
							zap.Duration("duration", summary.Duration),
						)
						return nil
					},
				})
			}),
		)
	},
}

// runOnce starts the application, letting OnStart hooks do the work, and
// stops it again.
func runOnce(ctx context.Context, opts ...fx.Option) error {
	application := fx.New(append(opts, fx.StartTimeout(startTimeout))...)
	if err := application.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := application.Start(startCtx); err != nil {
		return err
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	return application.Stop(stopCtx)
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&startTimeout, "start-timeout", 5*time.Minute, "maximum time allowed for startup work")
	rootCmd.AddCommand(serveCmd, migrateCmd, recalculateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
