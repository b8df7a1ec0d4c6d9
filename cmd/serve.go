package cmd

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/sci/gateway"
	"github.com/luma/sci/storage"
)

var (
	// The host to listen on
	host string

	// The port to listen for http requests on
	httpPort int
)

func init() {
	flags := ServeCmd.Flags()

	flags.IntVar(&httpPort, "http-port", 7362, "The port to listen to HTTP requests on")
	flags.StringVarP(&host, "host", "a", "0.0.0.0", "The host to listen on")
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog of device parameters and functions over HTTP",
	Long: `Serve the catalog of device parameters and functions over HTTP

The catalog is read from the JSON file named by SCI_CATALOG.

Usage
	sci serve --port /dev/ttyUSB0 --http-port 7362

`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, signalStop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer signalStop()

		store, err := loadCatalog(conf.Catalog)
		if err != nil {
			return err
		}

		dev, err := openDevice()
		if err != nil {
			store.Close()
			return err
		}

		defer func() {
			if err := dev.Close(); err != nil {
				log.Error("Serial port did not close cleanly", zap.Error(err))
			}
		}()

		server := gateway.New(gateway.Options{
			Host:      host,
			Port:      httpPort,
			Reuseport: true,
			DebugHTTP: conf.DebugHTTP,
			Store:     store,
			Device:    dev,
			Log:       log.Named("gateway"),
		})

		if err := server.Start(ctx); err != nil {
			store.Close()
			return err
		}

		log.Info("Serving",
			zap.Any("config", conf),
			zap.String("host", host),
			zap.Int("httpPort", httpPort))

		// Listen for the interrupt signal.
		<-ctx.Done()

		// Restore default behavior on the interrupt signal and notify user of shutdown.
		signalStop()
		log.Info("Shutting down gracefully, press Ctrl+C again to force")

		// The context is used to inform the server it has 5 seconds to finish
		// the request it is currently handling
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Http server forced to shutdown", zap.Error(err))
		}

		if err := server.Close(); err != nil {
			log.Error("Gateway did not close cleanly", zap.Error(err))
		}

		log.Info("Exiting")
		return nil
	},
}

func loadCatalog(path string) (*storage.InmemoryStore, error) {
	store := storage.NewInmemoryStore()

	if path == "" {
		log.Warn("No catalog given, set SCI_CATALOG to serve named parameters")
		return store, nil
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Failed to read catalog: %w", err)
	}

	if err := store.Restore(data); err != nil {
		return nil, err
	}

	return store, nil
}
