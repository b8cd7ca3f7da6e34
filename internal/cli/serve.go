package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rahlplx/workforce/internal/config"
	"github.com/rahlplx/workforce/internal/executor"
	"github.com/rahlplx/workforce/internal/httpapi"
	"github.com/rahlplx/workforce/internal/otel"
	"github.com/rahlplx/workforce/pkg/models"
)

func newServeCmd() *cobra.Command {
	var (
		port           int
		dev            bool
		apiKey         string
		dbDriver       string
		dbURL          string
		enableOtel     bool
		executorKind   string
		subprocessCmd  string
		subprocessArgs []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dispatch server in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			if err := os.MkdirAll(home, 0o755); err != nil {
				return err
			}
			if apiKey == "" {
				apiKey = os.Getenv("WORKFORCE_API_KEY")
			}
			if dbURL == "" {
				dbURL = os.Getenv("DATABASE_URL")
			}

			var exec executor.Executor
			switch executorKind {
			case "", "stub":
				exec = executor.Stub{}
			case "subprocess":
				if subprocessCmd == "" {
					return errors.New("--subprocess-cmd is required with --executor subprocess")
				}
				exec = executor.Subprocess{Command: subprocessCmd, Args: subprocessArgs}
			default:
				return fmt.Errorf("unknown executor %q (stub or subprocess)", executorKind)
			}

			var metricsHandler http.Handler
			if enableOtel {
				h, err := otel.InitMeterProvider(cmd.Context(), "workforce")
				if err != nil {
					return err
				}
				metricsHandler = h
			}

			app, err := httpapi.NewApp(httpapi.ServerOptions{
				Home:           home,
				Addr:           fmt.Sprintf(":%d", port),
				Dev:            dev,
				APIKey:         apiKey,
				DBDriver:       dbDriver,
				DBURL:          dbURL,
				MetricsHandler: metricsHandler,
				UseOtelHTTP:    enableOtel,
				Executor:       exec,
			})
			if err != nil {
				return err
			}

			if enableOtel {
				// The decisions gauge observes the store, so the instruments
				// are created after the app opens it.
				countFn := func() (done, halted, pending int64) {
					counts, err := app.Store.CountDecisionsByState(context.Background())
					if err != nil {
						slog.Warn("decision count failed", "err", err)
						return 0, 0, 0
					}
					return counts[models.StateDone], counts[models.StateHalted], counts[models.StateRouted]
				}
				if err := otel.InitMetricsWithDecisionCount(cmd.Context(), countFn); err != nil {
					return err
				}
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- app.Server.ListenAndServe()
			}()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Workforce listening on http://localhost:%d (home %s)\n", port, home)

			select {
			case <-cmd.Context().Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return app.Server.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	cmd.Flags().IntVar(&port, "port", 7430, "Listen port")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable CORS for local development")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Require X-API-Key on requests (env: WORKFORCE_API_KEY)")
	cmd.Flags().StringVar(&dbDriver, "db-driver", "sqlite", "Store driver: sqlite or postgres")
	cmd.Flags().StringVar(&dbURL, "db-url", "", "Postgres connection string (env: DATABASE_URL)")
	cmd.Flags().BoolVar(&enableOtel, "otel", false, "Enable OpenTelemetry metrics and /metrics")
	cmd.Flags().StringVar(&executorKind, "executor", "stub", "Executor: stub or subprocess")
	cmd.Flags().StringVar(&subprocessCmd, "subprocess-cmd", "", "Worker binary for --executor subprocess")
	cmd.Flags().StringArrayVar(&subprocessArgs, "subprocess-arg", nil, "Extra argument for the worker binary (repeatable)")
	return cmd
}
