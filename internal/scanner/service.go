// Package scanner is the top-level refresh orchestrator. It drives
// repeated scan cycles over the configured watchlist: fetch bars from the
// quote provider, recompute MACD and VWAP from scratch, classify the
// crossover, gate alerts, dispatch notifications and hand the cycle
// report to the configured sinks.
package scanner

import (
	"context"
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"crosswatch/internal/alert"
	"crosswatch/internal/markethours"
	"crosswatch/internal/metrics"
	"crosswatch/internal/model"
	"crosswatch/internal/notification"
	redisstore "crosswatch/internal/store/redis"
	sqlitestore "crosswatch/internal/store/sqlite"
	"crosswatch/pkg/chartapi"
)

// Service wires all scanner dependencies and manages their lifecycle.
type Service struct {
	cfg Config

	provider *chartapi.Client
	runner   *Runner
	gate     *alert.Gate
	dispatch *notification.Dispatcher

	publisher *redisstore.Publisher // nil when Redis publishing is disabled
	archive   *sqlitestore.Archive  // nil when the SQLite archive is disabled

	prom   *metrics.Metrics
	health *metrics.HealthStatus
	msrv   *metrics.Server

	pacer     Pacer
	refreshCh chan struct{}

	mu     sync.RWMutex
	last   *model.CycleReport
	cycles int64
}

// New creates a Service from the given Config. Optional stores that fail
// to initialize are logged and skipped; the scan loop runs regardless.
func New(cfg Config) (*Service, error) {
	svc := &Service{
		cfg:       cfg,
		prom:      metrics.NewMetrics(),
		health:    metrics.NewHealthStatus(),
		refreshCh: make(chan struct{}, 1),
	}

	svc.provider = chartapi.NewClient(chartapi.Config{
		BaseURL: cfg.ProviderBaseURL,
		Timeout: time.Duration(cfg.ProviderTimeoutSec) * time.Second,
		Debug:   cfg.ProviderDebug,
		OnBreakerChange: func(_, to chartapi.State) {
			svc.prom.BreakerState.Set(float64(to))
			if to == chartapi.StateOpen {
				svc.prom.BreakerTrips.Inc()
			}
		},
	})

	svc.runner = &Runner{
		Provider: svc.provider,
		Interval: cfg.Interval,
		MACD:     cfg.MACD,
		Metrics:  svc.prom,
	}
	svc.gate = alert.NewGate(cfg.Policy)
	svc.dispatch = notification.NewDispatcher(buildNotifiers(cfg)...)

	if cfg.RedisEnabled {
		pub, err := redisstore.New(redisstore.PublisherConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Printf("[scanner] WARNING: redis init failed: %v (continuing without publishing)", err)
			svc.health.SetRedisConnected(false)
		} else {
			svc.publisher = pub
		}
	}

	if cfg.SQLiteEnabled {
		os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
		arc, err := sqlitestore.New(sqlitestore.ArchiveConfig{DBPath: cfg.SQLitePath})
		if err != nil {
			log.Printf("[scanner] WARNING: sqlite init failed: %v (continuing without archive)", err)
			svc.health.SetSQLiteOK(false)
		} else {
			svc.archive = arc
			svc.pruneArchive(cfg.SQLiteRetentionDays)
		}
	}

	svc.health.SetSymbols(cfg.Symbols)
	svc.pacer = NewTickerPacer(cfg.RefreshInterval())
	return svc, nil
}

// pruneArchive drops bars past the retention window. Runs once at
// startup; a prune failure costs disk, not cycles, so it only warns.
func (svc *Service) pruneArchive(days int) {
	if days <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := svc.archive.PruneBars(ctx, time.Now().AddDate(0, 0, -days))
	if err != nil {
		log.Printf("[scanner] WARNING: bar pruning failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[scanner] pruned %d archived bars older than %d days", n, days)
	}
}

// buildNotifiers assembles the notifier set from NOTIFY_CHANNELS.
// Channels missing their credentials are skipped with a warning.
func buildNotifiers(cfg Config) []notification.Notifier {
	var out []notification.Notifier
	for _, ch := range cfg.NotifyChannels {
		switch ch {
		case "log":
			out = append(out, notification.NewLogNotifier())
		case "email":
			if cfg.SMTPHost == "" || len(cfg.AlertRecipients) == 0 {
				log.Println("[scanner] WARNING: email channel configured without SMTP_HOST/ALERT_RECIPIENT, skipping")
				continue
			}
			out = append(out, notification.NewEmailNotifier(notification.EmailConfig{
				Host:     cfg.SMTPHost,
				Port:     cfg.SMTPPort,
				Username: cfg.SMTPUsername,
				Password: cfg.SMTPPassword,
				To:       cfg.AlertRecipients,
			}))
		case "telegram":
			if cfg.TelegramToken == "" || cfg.TelegramChatID == "" {
				log.Println("[scanner] WARNING: telegram channel configured without token/chat id, skipping")
				continue
			}
			out = append(out, notification.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID))
		case "webhook":
			if cfg.WebhookURL == "" {
				log.Println("[scanner] WARNING: webhook channel configured without WEBHOOK_URL, skipping")
				continue
			}
			out = append(out, notification.NewWebhookNotifier(cfg.WebhookURL))
		default:
			log.Printf("[scanner] WARNING: unknown notify channel %q, skipping", ch)
		}
	}
	return out
}

// Run starts the subsystems and blocks until ctx is cancelled.
func (svc *Service) Run(ctx context.Context) error {
	cfg := svc.cfg
	log.Println("[scanner] starting crossover scanner...")

	if cfg.MetricsAddr != "" {
		svc.msrv = metrics.NewServer(cfg.MetricsAddr, svc.health)
		svc.msrv.Start()
	}
	svc.startLiveness(ctx)
	if cfg.APIAddr != "" {
		svc.startHTTP(ctx)
	}

	// ---- Startup banner ----
	log.Println("[scanner] ╔════════════════════════════════════════════════════════╗")
	log.Println("[scanner] ║  MACD/VWAP Crossover Scanner Active                    ║")
	log.Println("[scanner] ║                                                        ║")
	log.Println("[scanner] ║  [Provider] → [MACD+VWAP] → [Detect] → [Alert/Publish] ║")
	log.Printf("[scanner] ║  %d symbols at %s bars, refresh every %ds            ║", len(cfg.Symbols), cfg.Interval, cfg.RefreshSec)
	log.Println("[scanner] ╚════════════════════════════════════════════════════════╝")
	log.Printf("[scanner] %s", markethours.StatusString(time.Now()))
	log.Println("[scanner] ✅ all systems running. Press Ctrl+C to stop.")

	// First cycle fires immediately; the pacer drives the rest.
	svc.step(ctx)

	for {
		select {
		case <-ctx.Done():
			svc.pacer.Stop()
			svc.shutdown()
			return nil
		case <-svc.pacer.C():
			svc.step(ctx)
		case <-svc.refreshCh:
			log.Println("[scanner] on-demand refresh requested")
			svc.step(ctx)
		}
	}
}

// RunCycle executes one on-demand cycle and returns its report. This is
// the single-shot entry point; it shares the gate and sinks with the
// repeating loop.
func (svc *Service) RunCycle(ctx context.Context) *model.CycleReport {
	return svc.step(ctx)
}

// LastReport returns the most recent cycle report, or nil before the
// first cycle completes.
func (svc *Service) LastReport() *model.CycleReport {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return svc.last
}

// step runs one full cycle: scan, metrics, alerts, sinks.
func (svc *Service) step(ctx context.Context) *model.CycleReport {
	now := time.Now()
	open := markethours.IsMarketOpen(now)
	svc.health.SetMarketOpen(open)

	if svc.cfg.SkipClosed && !open {
		log.Printf("[scanner] %s, skipping cycle", markethours.StatusString(now))
		svc.prom.CyclesSkipped.Inc()
		return svc.LastReport()
	}

	svc.mu.Lock()
	svc.cycles++
	n := svc.cycles
	svc.mu.Unlock()

	report, fetched := svc.runner.RunCycle(ctx, svc.cfg.Symbols, n)

	svc.prom.CyclesTotal.Inc()
	svc.prom.CycleDur.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	svc.prom.LastCycleUnix.Set(float64(report.FinishedAt.Unix()))
	svc.prom.Instruments.Set(float64(len(report.Entries)))
	svc.prom.BreakerState.Set(float64(svc.provider.BreakerState()))
	svc.health.SetLastCycle(report.FinishedAt, n)
	svc.health.SetProviderOK(anyHealthy(report))

	alerts := svc.emitAlerts(ctx, report)
	svc.persist(ctx, report, fetched)

	svc.mu.Lock()
	svc.last = report
	svc.mu.Unlock()

	ok, unavailable := countStatuses(report)
	log.Printf("[scanner] cycle %d: %d ok, %d unavailable, %d alerts (%.2fs)",
		n, ok, unavailable, alerts, report.FinishedAt.Sub(report.StartedAt).Seconds())
	return report
}

// emitAlerts runs the gate over the report and dispatches every intent.
// Returns the number of intents emitted. Delivery failures are recorded,
// never fatal.
func (svc *Service) emitAlerts(ctx context.Context, report *model.CycleReport) int {
	intents := svc.gate.Evaluate(report)
	for _, intent := range intents {
		deliveries := svc.dispatch.Dispatch(ctx, intent)

		delivered := true
		firstErr := ""
		for _, d := range deliveries {
			if d.Ok() {
				svc.prom.AlertsSent.WithLabelValues(d.Channel).Inc()
				continue
			}
			svc.prom.AlertsFailed.WithLabelValues(d.Channel).Inc()
			delivered = false
			if firstErr == "" {
				firstErr = d.Err.Error()
			}
		}

		if svc.publisher != nil {
			if err := svc.publisher.PublishAlert(ctx, intent); err != nil {
				log.Printf("[scanner] alert publish failed: %v", err)
			}
		}
		if svc.archive != nil {
			if err := svc.archive.RecordAlert(ctx, intent, delivered, firstErr); err != nil {
				log.Printf("[scanner] alert journal failed: %v", err)
			}
		}
	}
	return len(intents)
}

// persist hands the report and fetched bars to the optional sinks.
func (svc *Service) persist(ctx context.Context, report *model.CycleReport, fetched map[string]model.Series) {
	if svc.publisher != nil {
		start := time.Now()
		if err := svc.publisher.WriteReport(ctx, report); err != nil {
			log.Printf("[scanner] redis publish failed: %v", err)
		}
		svc.prom.RedisPublishDur.Observe(time.Since(start).Seconds())
	}
	if svc.archive != nil {
		start := time.Now()
		if err := svc.archive.WriteReport(ctx, report); err != nil {
			log.Printf("[scanner] sqlite report write failed: %v", err)
		}
		for _, series := range fetched {
			if err := svc.archive.SaveBars(ctx, series); err != nil {
				log.Printf("[scanner] sqlite bar write failed for %s: %v", series.Symbol, err)
			}
		}
		svc.prom.SQLiteCommitDur.Observe(time.Since(start).Seconds())
	}
}

// startLiveness launches the periodic store probes behind the health
// endpoint. Disabled stores pass nil and are never probed.
func (svc *Service) startLiveness(ctx context.Context) {
	var redisClient *goredis.Client
	if svc.publisher != nil {
		redisClient = svc.publisher.Client()
	}
	var sqlDB *sql.DB
	if svc.archive != nil {
		sqlDB = svc.archive.DB()
	}
	svc.health.StartLivenessChecker(ctx, redisClient, sqlDB, 15*time.Second)
}

// shutdown closes every optional resource in reverse start order.
func (svc *Service) shutdown() {
	log.Println("[scanner] shutdown signal received...")

	if svc.msrv != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		svc.msrv.Stop(stopCtx)
		cancel()
	}
	if svc.publisher != nil {
		svc.publisher.Close()
	}
	if svc.archive != nil {
		svc.archive.Close()
	}

	log.Println("[scanner] shutdown complete.")
}

func anyHealthy(report *model.CycleReport) bool {
	if len(report.Entries) == 0 {
		return true
	}
	for _, e := range report.Entries {
		if e.Status == model.StatusOK {
			return true
		}
	}
	return false
}

func countStatuses(report *model.CycleReport) (ok, unavailable int) {
	for _, e := range report.Entries {
		if e.Status == model.StatusOK {
			ok++
		} else {
			unavailable++
		}
	}
	return ok, unavailable
}
