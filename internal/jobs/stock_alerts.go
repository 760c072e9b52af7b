package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"vetpos/internal/domain"
	"vetpos/internal/metrics"
)

type AlertScanner interface {
	ScanInventoryAlerts(ctx context.Context) ([]domain.InventoryAlert, error)
}

// StockAlertJob periodically scans inventory for low, depleted, expired and
// soon-to-expire items, publishing counts as gauges and logging each alert.
type StockAlertJob struct {
	scanner AlertScanner
	metrics *metrics.Metrics
	log     *zap.Logger
	timeout time.Duration
	cron    *cron.Cron
}

func NewStockAlertJob(scanner AlertScanner, m *metrics.Metrics, log *zap.Logger, loc *time.Location) *StockAlertJob {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &StockAlertJob{
		scanner: scanner,
		metrics: m,
		log:     log,
		timeout: 30 * time.Second,
		cron:    cron.New(cron.WithLocation(loc)),
	}
}

// Start registers the scan under a standard five-field cron schedule and
// starts the scheduler goroutine.
func (j *StockAlertJob) Start(schedule string) error {
	if _, err := j.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		defer cancel()
		if _, err := j.Run(ctx); err != nil {
			j.log.Error("stock alert scan failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule stock alerts %q: %w", schedule, err)
	}
	j.cron.Start()
	j.log.Info("stock alert scheduler started", zap.String("schedule", schedule))
	return nil
}

// Stop halts the scheduler and returns a context that is done once a running
// scan finishes.
func (j *StockAlertJob) Stop() context.Context {
	return j.cron.Stop()
}

// Run performs one scan and returns the alert count per code.
func (j *StockAlertJob) Run(ctx context.Context) (map[string]int, error) {
	alerts, err := j.scanner.ScanInventoryAlerts(ctx)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{
		string(domain.InventoryLowStock):   0,
		string(domain.InventoryOutOfStock): 0,
		string(domain.InventoryExpired):    0,
		domain.AlertExpiringSoon:           0,
	}
	for _, alert := range alerts {
		counts[alert.Code]++
		fields := []zap.Field{
			zap.String("item_id", alert.Item.ID),
			zap.String("name", alert.Item.Name),
			zap.String("code", alert.Code),
			zap.Int("quantity", alert.Item.Quantity),
			zap.Int("min_stock", alert.Item.MinStock),
		}
		if alert.DaysToExpiry != nil {
			fields = append(fields, zap.Int("days_to_expiry", *alert.DaysToExpiry))
		}
		j.log.Warn("inventory alert", fields...)
	}
	j.metrics.SetStockAlerts(counts)
	j.log.Info("stock alert scan finished", zap.Int("alerts", len(alerts)))
	return counts, nil
}
