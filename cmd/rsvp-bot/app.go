package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"rsvp-bot/internal/campaign"
	"rsvp-bot/internal/config"
	"rsvp-bot/internal/handler"
	"rsvp-bot/internal/httpapi"
	"rsvp-bot/internal/sheets"
	"rsvp-bot/internal/storage"
	"rsvp-bot/internal/tenant"
	"rsvp-bot/internal/whatsapp"
)

// app holds the components shared by every subcommand. The WhatsApp
// connection is opened only by the commands that send.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	tenants   *storage.TenantStore
	directory *storage.Directory
	sheets    *sheets.Registry
	resolver  *tenant.Resolver
	scheduler *campaign.Scheduler
	state     *campaign.State
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	log := cfg.NewLogger(os.Stdout)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	tenants, err := storage.NewTenantStore(cfg.TenantsPath())
	if err != nil {
		return nil, err
	}
	credentials, err := storage.NewCredentialStore(cfg.CredentialsPath(), cfg.SecretKey)
	if err != nil {
		return nil, err
	}
	directory, err := storage.NewDirectory(cfg.GuestMapPath(), log)
	if err != nil {
		return nil, err
	}

	loc := cfg.Location()
	registry := sheets.NewRegistry(tenants, credentials, sheets.Config{
		Timeout:       cfg.SheetTimeout,
		RetryAttempts: cfg.SheetRetries,
		RetryDelay:    cfg.SheetRetryDelay,
		CacheTTL:      cfg.CacheTTL,
		Location:      loc,
	}, log)

	return &app{
		cfg:       cfg,
		log:       log,
		tenants:   tenants,
		directory: directory,
		sheets:    registry,
		resolver:  tenant.NewResolver(directory, tenants, log),
		scheduler: campaign.NewScheduler(loc, cfg.BatchSize),
		state:     campaign.NewState(),
	}, nil
}

func (a *app) gateway(tenantID string) (*sheets.Gateway, error) {
	return a.sheets.Gateway(tenantID)
}

func (a *app) guestSource(tenantID string) (campaign.GuestSource, error) {
	g, err := a.gateway(tenantID)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (a *app) guestStore(tenantID string) (handler.GuestStore, error) {
	g, err := a.gateway(tenantID)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (a *app) guestView(tenantID string) (httpapi.GuestView, error) {
	g, err := a.gateway(tenantID)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// connect opens the WhatsApp session, pairing by QR code on first run.
func (a *app) connect() (*whatsapp.Service, error) {
	wa, err := whatsapp.NewService(&whatsapp.Config{DataDir: a.cfg.DataDir}, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize WhatsApp service: %w", err)
	}
	a.log.Info().Msg("Connecting to WhatsApp")
	if err := wa.Connect(); err != nil {
		return nil, err
	}
	return wa, nil
}

func (a *app) runner(sender campaign.Sender) *campaign.Runner {
	return campaign.NewRunner(a.guestSource, a.directory, sender, a.tenants, a.scheduler, a.state, a.cfg.MessageDelay, a.log)
}

func (a *app) followUpQueue(sender campaign.Sender) (*campaign.FollowUpQueue, error) {
	return campaign.NewFollowUpQueue(storage.NewFollowUpFile(a.cfg.FollowUpsPath()), a.guestSource, sender, a.log)
}
