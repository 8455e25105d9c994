package campaign

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LoopConfig sets the cadence of the background loops.
type LoopConfig struct {
	CampaignInterval time.Duration
	// Campaigns run only while the local hour is within [StartHour, EndHour].
	StartHour        int
	EndHour          int
	FollowUpInterval time.Duration
	Location         *time.Location
}

func (c LoopConfig) inCampaignHours(now time.Time) bool {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	hour := now.In(loc).Hour()
	return hour >= c.StartHour && hour <= c.EndHour
}

// StartCampaignLoop runs a non-forced batch for every active tenant on each
// tick inside campaign hours, until ctx is done.
func StartCampaignLoop(ctx context.Context, runner *Runner, cfg LoopConfig, log zerolog.Logger) {
	logger := log.With().Str("component", "campaign_loop").Logger()
	go func() {
		ticker := time.NewTicker(cfg.CampaignInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if !cfg.inCampaignHours(now) {
					logger.Debug().Msg("Outside campaign hours")
					continue
				}
				sent := runner.RunAll(ctx, false)
				logger.Info().Int("sent", sent).Msg("Scheduled campaign run finished")
			}
		}
	}()
}

// StartFollowUpLoop flushes due follow-ups on each tick until ctx is done.
func StartFollowUpLoop(ctx context.Context, queue *FollowUpQueue, cfg LoopConfig, log zerolog.Logger) {
	logger := log.With().Str("component", "followup_loop").Logger()
	go func() {
		ticker := time.NewTicker(cfg.FollowUpInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if _, err := queue.Flush(ctx, now); err != nil {
					logger.Error().Err(err).Msg("Follow-up flush failed")
				}
			}
		}
	}()
}
