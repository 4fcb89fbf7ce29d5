package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/fmuoria/gems-hub/internal/api"
	"github.com/fmuoria/gems-hub/internal/auth"
	"github.com/fmuoria/gems-hub/internal/config"
	"github.com/fmuoria/gems-hub/internal/ingestion"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(opts)
			if err != nil {
				return err
			}
			defer log.Sync()

			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(ctx, cfg, log, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			srvCfg, err := serverConfig(cfg, rt)
			if err != nil {
				return err
			}
			if log.DebugEnabled() {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}
			api.Version = Version

			srv := &http.Server{
				Addr:         cfg.Server.Addr,
				Handler:      api.NewServer(srvCfg).Router(),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("server listening", "addr", cfg.Server.Addr, "sign_in", srvCfg.Provider != nil, "cache", cfg.Cache.Driver)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			log.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// serverConfig builds the API configuration. Sign-in stays disabled
// unless a Google client id is configured.
func serverConfig(cfg *config.Config, rt *runtime) (api.Config, error) {
	c := api.Config{
		Hub:            rt.hub,
		Users:          rt.store,
		Health:         rt.gemdb,
		Metrics:        rt.metrics,
		Logger:         rt.log,
		SiteName:       cfg.Site.Name,
		GemTypesFile:   cfg.Site.GemTypesFile,
		SearchBaseURL:  cfg.Site.StoreSearchURL,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		CookieName:     cfg.Auth.CookieName,
		SecureCookies:  cfg.Auth.SecureCookies,
	}
	if cfg.Store.InvoiceDir != "" {
		c.Invoices = ingestion.NewInvoiceArchive(cfg.Store.InvoiceDir)
	}

	if cfg.Auth.SessionSecret != "" {
		sessions, err := auth.NewSessions(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
		if err != nil {
			return c, err
		}
		c.Sessions = sessions
	}

	if cfg.Auth.Enabled() {
		provider, err := auth.NewGoogle(cfg.Auth.GoogleClientID, cfg.Auth.GoogleClientSecret, cfg.Auth.RedirectURL)
		if err != nil {
			return c, err
		}
		c.Provider = provider
	}
	return c, nil
}
