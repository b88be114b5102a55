package database

import (
	"context"
	"time"

	"github.com/Aidin1998/accounts/pkg/metrics"
	"gorm.io/gorm"
)

// RecordPoolStats copies the connection pool stats of db into the pool
// gauges every interval until ctx is done.
func RecordPoolStats(ctx context.Context, db *gorm.DB, name string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		observePool(db, name)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func observePool(db *gorm.DB, name string) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	stats := sqlDB.Stats()
	metrics.DBOpenConns.WithLabelValues(name).Set(float64(stats.OpenConnections))
	metrics.DBIdleConns.WithLabelValues(name).Set(float64(stats.Idle))
	metrics.DBInUseConns.WithLabelValues(name).Set(float64(stats.InUse))
}
