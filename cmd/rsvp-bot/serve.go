package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"rsvp-bot/internal/campaign"
	"rsvp-bot/internal/handler"
	"rsvp-bot/internal/httpapi"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Listen for RSVP replies and run the campaign and follow-up loops",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	fmt.Println("🎉 RSVP Bot")
	fmt.Println("===========")

	wa, err := a.connect()
	if err != nil {
		return err
	}
	defer wa.Disconnect()

	runner := a.runner(wa)
	queue, err := a.followUpQueue(wa)
	if err != nil {
		return err
	}

	rsvpHandler := handler.NewRSVPHandler(wa, a.resolver, a.guestStore, a.tenants, queue, runner, handler.Config{
		BotPhone:     wa.OwnPhone(),
		AdminNumbers: a.cfg.AdminNumbers,
		Location:     a.cfg.Location(),
		FollowUpHour: a.cfg.FollowUpHour,
	}, a.log)
	wa.SetMessageHandler(rsvpHandler.HandleMessage)

	fmt.Println("\n✅ Connected to WhatsApp!")
	fmt.Println("The bot is now listening for RSVP responses.")

	loops := campaign.LoopConfig{
		CampaignInterval: a.cfg.CampaignInterval,
		StartHour:        a.cfg.CampaignStartHour,
		EndHour:          a.cfg.CampaignEndHour,
		FollowUpInterval: a.cfg.FollowUpInterval,
		Location:         a.cfg.Location(),
	}
	campaign.StartCampaignLoop(ctx, runner, loops, a.log)
	campaign.StartFollowUpLoop(ctx, queue, loops, a.log)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr: a.cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Guests:    a.guestView,
			Campaigns: runner,
			FollowUps: queue,
			Directory: a.directory,
			Tenants:   a.tenants,
		}, a.log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	fmt.Println("\n\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("HTTP server shutdown")
	}
	fmt.Println("Goodbye! 👋")
	return nil
}
