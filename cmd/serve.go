package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/amrsdek/MedMate-App/internal/instructions"
	"github.com/amrsdek/MedMate-App/internal/server"
	"github.com/amrsdek/MedMate-App/internal/session"
)

const shutdownTimeout = 30 * time.Second

var (
	servePort    int
	servePrompts string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the conversion web API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort > 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		catalog, err := loadCatalog(servePrompts)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		sessions := session.NewManager(session.WithLocalCheck(env.Pipeline.LocalAvailable))
		srv := server.New(cfg.Server, server.Deps{
			Sessions: sessions,
			Runner:   env.Pipeline,
			Catalog:  catalog,
			Feedback: env.Feedback,
			Metrics:  env.Metrics,
		})

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ttl := time.Duration(cfg.Server.SessionTTLMinutes) * time.Minute

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("server starting",
				zap.Int("port", cfg.Server.Port),
				zap.Bool("remote", env.Pipeline.RemoteEnabled()),
			)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "serve: listen")
			}
			return nil
		})
		g.Go(func() error {
			return sessions.RunReaper(gctx, ttl, ttl/4)
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			err := httpSrv.Shutdown(shutdownCtx)
			srv.Close(shutdownTimeout)
			if err != nil {
				return eris.Wrap(err, "serve: shutdown")
			}
			return nil
		})

		return g.Wait()
	},
}

// loadCatalog returns the embedded instruction catalog, or the one at path
// when set.
func loadCatalog(path string) (*instructions.Catalog, error) {
	if path == "" {
		return instructions.Default(), nil
	}
	c, err := instructions.LoadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "load prompts")
	}
	return c, nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (overrides server.port)")
	serveCmd.Flags().StringVar(&servePrompts, "prompts", "", "path to a prompts YAML file replacing the built-in instructions")
	rootCmd.AddCommand(serveCmd)
}
