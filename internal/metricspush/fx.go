package metricspush

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/utilitybill/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("metrics.push",
	fx.Provide(NewPusher),
	fx.Invoke(startPushLoop),
)

var (
	billGaugeOnce sync.Once
	billGauge     *prometheus.GaugeVec
)

func billsByStatus() *prometheus.GaugeVec {
	billGaugeOnce.Do(func() {
		billGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "utilitybill_bills",
			Help: "Bills by status, refreshed before each push.",
		}, []string{"status"})
		prometheus.MustRegister(billGauge)
	})
	return billGauge
}

type statusCount struct {
	Status string
	Count  int64
}

// refreshBillGauges sets utilitybill_bills from the bills table.
func refreshBillGauges(ctx context.Context, db *gorm.DB, gauge *prometheus.GaugeVec) error {
	var rows []statusCount
	if err := db.WithContext(ctx).
		Table("bills").
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return err
	}
	gauge.Reset()
	for _, row := range rows {
		gauge.WithLabelValues(row.Status).Set(float64(row.Count))
	}
	return nil
}

func startPushLoop(lc fx.Lifecycle, cfg config.Config, pusher Pusher, db *gorm.DB, log *zap.Logger) {
	if pusher == nil {
		return
	}
	log = log.Named("metrics.push")
	interval := cfg.MetricsPush.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	gauge := billsByStatus()

	pushOnce := func(ctx context.Context) {
		if err := refreshBillGauges(ctx, db, gauge); err != nil {
			log.Warn("refresh bill gauges failed", zap.Error(err))
		}
		pushCtx, cancel := context.WithTimeout(ctx, defaultPushTimeout)
		defer cancel()
		if err := pusher.Push(pushCtx, prometheus.DefaultGatherer); err != nil {
			log.Error("metrics push failed", zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("starting metrics push", zap.String("exporter", cfg.MetricsPush.Exporter), zap.Duration("interval", interval))
			go func() {
				defer close(done)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()

				pushOnce(ctx)
				for {
					select {
					case <-ticker.C:
						pushOnce(ctx)
					case <-ctx.Done():
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			<-done
			// final push so the last job results are not lost
			pushOnce(stopCtx)
			if closer, ok := pusher.(interface{ Close() error }); ok {
				return closer.Close()
			}
			return nil
		},
	})
}
