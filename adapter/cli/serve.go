package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/slotwise/slotwise/adapter/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the booking API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireContainer()
		if err != nil {
			return err
		}

		serverCfg := api.DefaultServerConfig()
		if serveAddr != "" {
			serverCfg.Addr = serveAddr
		} else if c.Config.APIAddr != "" {
			serverCfg.Addr = c.Config.APIAddr
		}

		availability := api.NewAvailabilityHandler(c.EventTypeRepo, c.TeamRepo, c.Selector)
		bookings := api.NewBookingHandler(
			c.CreateBookingHandler,
			c.CancelBookingHandler,
			c.RescheduleBookingHandler,
			c.GetBookingHandler,
			c.ListUpcomingHandler,
			c.RateLimiter,
			logger,
		)
		server := api.NewServer(serverCfg, availability, bookings, logger)
		server.SetMetrics(c.Metrics)
		server.SetHealthRegistry(c.Health)

		ctx := cmd.Context()
		if c.Config.OutboxProcessorEnabled {
			if err := c.OutboxProcessor.Start(ctx); err != nil {
				return err
			}
			defer c.OutboxProcessor.Stop()
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides API_ADDR)")
	rootCmd.AddCommand(serveCmd)
}
