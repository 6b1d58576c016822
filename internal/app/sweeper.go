package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tutorlane/server/internal/service"
)

// Sweeper periodically marks confirmed bookings whose session time has
// passed as completed. This is the external trigger of the booking
// lifecycle; nothing in the confirmation flow depends on it.
type Sweeper struct {
	bookings *service.BookingService
	cron     *cron.Cron
	logger   *zap.Logger
}

func NewSweeper(bookings *service.BookingService, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		bookings: bookings,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start runs the sweep immediately and then every hour.
func (s *Sweeper) Start(ctx context.Context) error {
	s.sweep(ctx)

	_, err := s.cron.AddFunc("@hourly", func() { s.sweep(ctx) })
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Completion sweeper started")
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Completion sweeper stopped")
}

func (s *Sweeper) sweep(ctx context.Context) {
	count, err := s.bookings.CompleteElapsed(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("Completion sweep failed", zap.Error(err))
		return
	}
	if count > 0 {
		s.logger.Info("Completion sweep done", zap.Int("completed", count))
	}
}
