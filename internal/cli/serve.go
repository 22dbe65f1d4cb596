package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"daily-tasks/internal/bot"
	"daily-tasks/internal/calendar"
	"daily-tasks/internal/logging"
	"daily-tasks/internal/metrics"
	"daily-tasks/internal/planner"
	"daily-tasks/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daily job, the Telegram bot and the metrics endpoint",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.loadPlanner(ctx)
	if err != nil {
		return err
	}
	digest := service.NewDigestService(p)

	var telegramBot *bot.Bot
	if a.cfg.TelegramToken != "" {
		telegramBot, err = bot.New(a.cfg.TelegramToken, p, digest, a.cfg.AllowedChatID, logging.Component(a.log, "bot"))
		if err != nil {
			return err
		}
	} else {
		a.log.Warn().Msg("TELEGRAM_TOKEN is empty, bot disabled")
	}

	scheduler := service.NewSchedulerService(calendar.Zone, logging.Component(a.log, "scheduler"))
	dailyID, err := scheduler.ScheduleDaily(a.cfg.DailyRunAt, func() {
		runDailyJob(ctx, p, telegramBot, a.log)
	})
	if err != nil {
		return err
	}
	if a.cfg.ReloadInterval > 0 {
		if _, err := scheduler.ScheduleInterval(a.cfg.ReloadInterval, func() {
			if err := p.Load(ctx); err != nil {
				a.log.Error().Err(err).Msg("reload tasks")
			}
		}); err != nil {
			return err
		}
	}
	scheduler.Start()
	defer scheduler.Stop()
	a.log.Info().Time("next_run", scheduler.Next(dailyID)).Msg("daily job scheduled")

	g, gctx := errgroup.WithContext(ctx)
	if a.cfg.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, a.cfg.MetricsAddr, logging.Component(a.log, "metrics"))
		})
	}
	if telegramBot != nil {
		g.Go(func() error {
			return telegramBot.Start(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	a.log.Info().Msg("daily tasks started")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.log.Info().Msg("shutdown complete")
	return nil
}

// runDailyJob rolls over and generates recurrences, then posts the new day's digest.
func runDailyJob(ctx context.Context, p *planner.Planner, telegramBot *bot.Bot, log zerolog.Logger) {
	p.RunDaily(ctx, calendar.Now())
	if telegramBot == nil {
		return
	}
	if err := telegramBot.SendDailyDigest(); err != nil {
		log.Error().Err(err).Msg("send daily digest")
	}
}
