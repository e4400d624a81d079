package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sart-go/internal/config"
	"sart-go/internal/models"
	"sart-go/internal/router"
	"sart-go/internal/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SART HTTP server",
	Long:  `Start the HTTP API and websocket stream for browser clients.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	_, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	// Watch the config file from here on.
	if err := config.Init(projectRoot, log); err != nil {
		return err
	}
	cfg := config.Current()
	if servePort != "" {
		cfg.Server.Port = servePort
	}

	if err := openDatabase(cfg.Database, log); err != nil {
		return err
	}

	// Load filler playlists at startup
	filler, err := models.LoadFillerCatalog(resolve(cfg.SART.FillerFile))
	if err != nil {
		return err
	}
	log.Info("Filler playlists loaded", zap.Strings("versions", filler.Versions()))

	registry := services.NewRegistry(log, services.RegistryOptions{
		Rounds:        cfg.SART.Rounds,
		DefaultFiller: cfg.SART.DefaultFiller,
		Protocol:      func() config.SARTConfig { return config.Current().SART },
		Filler:        filler,
	})
	defer registry.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services.NewReaper(log, registry, cfg.Server.SessionTTL, cfg.Server.ReapInterval).Start(ctx)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Server.Port),
		Handler:           router.Setup(log, cfg.Server, registry, filler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening on http://localhost:" + cfg.Server.Port)
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

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
