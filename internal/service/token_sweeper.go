package service

import (
	"context"
	"time"

	"agromarket/account-api/internal/store"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sweepTimeout = 30 * time.Second

// TokenSweeper periodically deletes expired token rows. Housekeeping only:
// Consume already treats expired rows as absent, so a failed sweep is logged
// and otherwise ignored.
type TokenSweeper struct {
	c      *cron.Cron
	tokens *store.TokenStore
}

// NewTokenSweeper schedules SweepExpired on a cron spec (e.g. "@hourly").
func NewTokenSweeper(tokens *store.TokenStore, schedule string) (*TokenSweeper, error) {
	s := &TokenSweeper{
		c:      cron.New(),
		tokens: tokens,
	}

	if _, err := s.c.AddFunc(schedule, s.sweep); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *TokenSweeper) Start() {
	s.c.Start()
	zap.L().Debug("Token sweeper attached")
}

func (s *TokenSweeper) Stop() {
	s.c.Stop()
}

func (s *TokenSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.tokens.SweepExpired(ctx)
	if err != nil {
		zap.L().Error("Failed to sweep expired tokens", zap.Error(err))
		return
	}

	if n > 0 {
		zap.L().Debug("Swept expired tokens", zap.Int64("count", n))
	}
}
