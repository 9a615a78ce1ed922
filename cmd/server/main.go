package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-okta-login/auth"
	"github.com/jrsteele09/go-okta-login/internal/config"
	"github.com/jrsteele09/go-okta-login/internal/logging"
	"github.com/jrsteele09/go-okta-login/internal/storage"
	"github.com/jrsteele09/go-okta-login/provider"
	"github.com/jrsteele09/go-okta-login/server"
	"github.com/jrsteele09/go-okta-login/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:           "okta-login",
		Short:         "Sign users in with Okta using the OpenID Connect authorization code flow",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading configuration: %s\n", err)
				return err
			}
			if err := run(cmd.Context(), cfg); err != nil {
				log.Error().Err(err).Msg("Server stopped with error")
				return err
			}
			log.Info().Msg("Server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "path to a config file (default ./config.yaml if present)")
	cmd.Flags().String("port", "", "port to listen on (env PORT)")
	cmd.Flags().String("env", "", "environment name, DEV enables console logging (env ENV)")
	cmd.Flags().String("log_level", "", "log level (env LOG_LEVEL)")
	cmd.Flags().String("store_backend", "", "memory, redis or sql (env STORE_BACKEND)")
	return cmd
}

func run(ctx context.Context, cfg config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	logger, err := logging.New(cfg.GetEnv(), cfg.GetLogLevel(), os.Stdout)
	if err != nil {
		return err
	}
	log.Logger = logger

	displayAppname(cfg.GetAppName())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handler, stores, mgr, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Error().Err(err).Msg("Closing stores")
		}
	}()

	go mgr.RunSweeper(ctx, cfg.GetSweepInterval(), stores.States)

	srv := &http.Server{
		Addr:              cfg.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(srv, logger) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

// build resolves the provider and opens the stores, failing before the
// listener starts if any of it is misconfigured.
func build(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*server.Server, *storage.Stores, *sessions.Manager, error) {
	providerCfg, err := provider.Resolve(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Info().
		Str("issuer", providerCfg.Issuer).
		Str("client_id", providerCfg.ClientID).
		Bool("discovery", cfg.GetUseDiscovery()).
		Msg("Identity provider configured")

	cache, err := provider.NewCache(ctx, providerCfg,
		provider.WithDiscovery(cfg.GetUseDiscovery()),
		provider.WithTimeout(cfg.GetHTTPClientTimeout()),
	)
	if err != nil {
		return nil, nil, nil, err
	}

	stores, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Info().Str("backend", stores.Backend).Msg("Stores opened")

	mgr := sessions.NewManager(stores.Sessions, cfg.GetMaxSessionAge(), sessions.WithLogger(logger))
	cookies, err := sessions.NewCookieCodec(cfg.GetSessionSecret())
	if err != nil {
		_ = stores.Close()
		return nil, nil, nil, err
	}

	svc, err := auth.NewService(cache, stores.States, mgr,
		auth.WithStateTTL(cfg.GetAuthStateTTL()),
		auth.WithPKCE(cfg.GetUsePKCE()),
		auth.WithUserInfo(cfg.GetFetchUserInfo()),
		auth.WithLogger(logger),
	)
	if err != nil {
		_ = stores.Close()
		return nil, nil, nil, err
	}

	srv, err := server.New(cfg, svc, mgr, cookies, logger)
	if err != nil {
		_ = stores.Close()
		return nil, nil, nil, err
	}
	return srv, stores, mgr, nil
}

func listenAndServe(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
