package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/C4T-BuT-S4D/slotwarden/internal/config"
	"github.com/C4T-BuT-S4D/slotwarden/internal/metrics"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// pendingGrace is how long an expired confirmation may linger before the ticker drops it.
const pendingGrace = time.Minute

type cronLogger struct {
	log *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Errorf("%s: %v", msg, err)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}

type sweepFunc func(ctx context.Context) error

// Runner drives the sweeps: slot announcements and reminders on a ticker, everything else on cron.
type Runner struct {
	sweeper *Sweeper
	cron    *cron.Cron
	tick    time.Duration
	ctx     context.Context
}

func NewRunner(cfg *config.Config, sweeper *Sweeper) (*Runner, error) {
	logger := cronLogger{log: logrus.WithField("component", "cron")}
	r := &Runner{
		sweeper: sweeper,
		tick:    cfg.SlotTickInterval,
		ctx:     context.Background(),
		cron: cron.New(
			cron.WithLocation(cfg.Location()),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.DelayIfStillRunning(logger)),
		),
	}

	for _, job := range []struct {
		name string
		spec string
		fn   sweepFunc
	}{
		{sweepInactivity, cfg.InactivityCron, sweeper.SweepInactivity},
		{sweepLowScore, cfg.LowScoreCron, sweeper.SweepLowScores},
		{sweepDayCycle, cfg.DayCycleCron, sweeper.AdvanceDayCycles},
		{sweepLeaderboard, cfg.LeaderboardCron, sweeper.PostLeaderboards},
		{sweepZeroActivity, cfg.ZeroActivityCron, sweeper.PenalizeZeroActivity},
		{sweepAdminSync, cfg.AdminSyncCron, sweeper.SyncAdmins},
	} {
		if job.spec == "" {
			logrus.Warnf("sweep %s has no schedule, disabled", job.name)
			continue
		}
		name, fn := job.name, job.fn
		if _, err := r.cron.AddFunc(job.spec, func() { r.run(name, fn) }); err != nil {
			return nil, fmt.Errorf("scheduling %s sweep %q: %w", name, job.spec, err)
		}
	}
	return r, nil
}

func (r *Runner) run(name string, fn sweepFunc) {
	start := time.Now()
	metrics.SweepRuns.WithLabelValues(name).Inc()
	defer func() {
		metrics.SweepDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	if err := fn(r.ctx); err != nil {
		logrus.WithField("sweep", name).Errorf("sweep failed: %v", err)
		return
	}
	logrus.WithField("sweep", name).Debugf("sweep done in %v", time.Since(start))
}

// Run blocks until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	r.ctx = ctx
	r.cron.Start()

	t := time.NewTicker(r.tick)
	defer t.Stop()

	logger := logrus.WithField("component", "slot_ticker")
	logger.Infof("started, tick every %v", r.tick)

	for {
		select {
		case <-t.C:
			r.run(sweepAnnounce, r.sweeper.AnnounceSlots)
			r.run(sweepReminder, r.sweeper.SendReminders)
			if n := r.sweeper.engine.Pending().Prune(pendingGrace); n > 0 {
				logger.Infof("dropped %d stale confirmations", n)
			}

		case <-ctx.Done():
			logger.Info("stopping cron")
			<-r.cron.Stop().Done()
			return
		}
	}
}
