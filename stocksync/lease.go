package stocksync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"github.com/warelink/stocksync_backend/config"
)

var ErrSyncInProgress = errors.New("a sync for this site is already in progress")

// acquireSyncLease takes a per-site mutual-exclusion lease so two runs never
// mutate the same connection's status fields concurrently. When no locker is
// configured (Redis absent, or disabled via env) the lease is skipped and the
// returned release func is a no-op.
func acquireSyncLease(ctx context.Context, locker *redislock.Client, logger *logrus.Logger, siteConnectionId uint, timeout time.Duration) (func(), error) {
	release := func() {}
	if locker == nil || config.SyncLeaseDisabled() {
		return release, nil
	}
	lockKey := fmt.Sprintf("stocksync:site:%d", siteConnectionId)
	ttl := timeout + 30*time.Second
	lock, err := locker.Obtain(ctx, lockKey, ttl, nil)
	if err == redislock.ErrNotObtained {
		return release, ErrSyncInProgress
	} else if err != nil {
		config.LogError(logger, "stocksync", "acquireSyncLease", "obtain sync lease", lockKey, err)
		return release, err
	}
	release = func() {
		_ = lock.Release(ctx)
	}
	return release, nil
}
