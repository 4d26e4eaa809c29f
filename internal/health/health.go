package health

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbCheckTimeout = 2 * time.Second

// Checker reports service readiness. The database check runs a round-trip
// query rather than a bare ping so a pool that connects but cannot execute
// is reported unhealthy.
type Checker struct {
	db        *pgxpool.Pool
	startedAt time.Time
}

type Status struct {
	Status        string         `json:"status"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Database      DatabaseStatus `json:"database"`
}

type DatabaseStatus struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

func NewChecker(db *pgxpool.Pool) *Checker {
	return &Checker{db: db, startedAt: time.Now()}
}

func (c *Checker) Check() Status {
	dbStatus := c.checkDatabase()

	status := "healthy"
	if dbStatus.Status != "healthy" {
		status = "unhealthy"
	}

	return Status{
		Status:        status,
		UptimeSeconds: int64(time.Since(c.startedAt).Seconds()),
		Database:      dbStatus,
	}
}

func (c *Checker) checkDatabase() DatabaseStatus {
	ctx, cancel := context.WithTimeout(context.Background(), dbCheckTimeout)
	defer cancel()

	start := time.Now()
	var one int
	err := c.db.QueryRow(ctx, "SELECT 1").Scan(&one)
	responseTime := time.Since(start).Milliseconds()

	status := "healthy"
	if err != nil {
		status = "unhealthy"
	}
	return DatabaseStatus{Status: status, ResponseTime: responseTime}
}
