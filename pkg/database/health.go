package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// HealthStatus summarizes the pool state for the health endpoint.
type HealthStatus struct {
	Status          string `json:"status"`
	OpenConnections int    `json:"open_connections"`
	InUse           int    `json:"in_use"`
	Idle            int    `json:"idle"`
	LatencyMs       int64  `json:"latency_ms"`
}

// Health pings the database and reports pool statistics.
func Health(ctx context.Context, db *sql.DB) (HealthStatus, error) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start).Milliseconds()

	stats := db.Stats()
	status := HealthStatus{
		Status:          "healthy",
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		LatencyMs:       latency,
	}
	if err != nil {
		status.Status = "unhealthy"
		return status, fmt.Errorf("database ping failed: %w", err)
	}
	return status, nil
}
