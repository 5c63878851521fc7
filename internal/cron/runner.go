package cronrunner

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"lobbywatch/internal/config"
	"lobbywatch/internal/repository"
)

type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

func New(logger *zap.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		if r == nil || r.baseCtx == nil {
			job(context.Background())
			return
		}
		job(r.baseCtx)
	})
}

func (r *Runner) Start() {
	if r.logger != nil {
		r.logger.Info("cron started")
	}
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	if r.logger != nil {
		r.logger.Info("cron stopped")
	}
}

// RegisterMaintenanceJobs wires the recurring housekeeping work: pruning
// stored raw feed events and bet signals past their retention windows, and
// expiring users whose subscription end date has passed.
func RegisterMaintenanceJobs(r *Runner, repo repository.Repository, retention config.RetentionConfig, logger *zap.Logger) error {
	// hourly raw event prune
	if _, err := r.Add("0 10 * * * *", func(ctx context.Context) {
		cutoff := time.Now().UTC().Add(-retention.RawEvents)
		n, err := repo.DeleteRawFeedEventsBefore(ctx, cutoff)
		if err != nil {
			logger.Error("raw event prune failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("raw events pruned", zap.Int64("deleted", n))
		}
	}); err != nil {
		return err
	}

	// daily bet signal prune
	if _, err := r.Add("0 20 3 * * *", func(ctx context.Context) {
		cutoff := time.Now().UTC().Add(-retention.BetSignals)
		n, err := repo.DeleteBetSignalsBefore(ctx, cutoff)
		if err != nil {
			logger.Error("bet signal prune failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("bet signals pruned", zap.Int64("deleted", n))
		}
	}); err != nil {
		return err
	}

	// hourly subscription expiry sweep
	if _, err := r.Add("0 0 * * * *", func(ctx context.Context) {
		n, err := repo.ExpireUsersPast(ctx, time.Now().UTC())
		if err != nil {
			logger.Error("user expiry sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("users expired", zap.Int64("count", n))
		}
	}); err != nil {
		return err
	}

	return nil
}
