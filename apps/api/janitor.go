package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/elimu/core"
)

// fileSweeper deletes stored uploads that nothing references anymore.
type fileSweeper interface {
	SweepOrphanedFiles(ctx context.Context, grace time.Duration) (int, error)
}

// janitor runs the periodic file sweep on conf.Storage.SweepSchedule.
type janitor struct {
	*cron.Cron
}

func newJanitor(conf *core.Config, sweeper fileSweeper, logger core.Logger) (*janitor, error) {
	c := cron.New()
	if conf.Storage.SweepSchedule == "" {
		return &janitor{c}, nil
	}

	_, err := c.AddFunc(conf.Storage.SweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		n, err := sweeper.SweepOrphanedFiles(ctx, conf.Storage.SweepGracePeriod)
		if err != nil {
			logger.Error(fmt.Sprintf("sweeping orphaned files: %v", err), err)
		}
		if n > 0 {
			logger.Info(fmt.Sprintf("swept %d orphaned files", n))
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "parsing schedule %q", conf.Storage.SweepSchedule)
	}
	return &janitor{c}, nil
}

// Stop waits for a running sweep to complete.
func (j *janitor) Stop() {
	<-j.Cron.Stop().Done()
}
