package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	alarmapp "gridwatch/internal/alarms/application"
	alarmrepo "gridwatch/internal/alarms/infrastructure/postgres"
	alarmhttp "gridwatch/internal/alarms/interfaces/http"
	alarmnotify "gridwatch/internal/alarms/notify"
	"gridwatch/internal/audit"
	"gridwatch/internal/auth"
	masterdatarepo "gridwatch/internal/masterdata/infrastructure/postgres"
	"gridwatch/internal/observability/metrics"
	ruleapp "gridwatch/internal/rules/application"
	rules "gridwatch/internal/rules/domain"
	rulerepo "gridwatch/internal/rules/infrastructure/postgres"
	rulehttp "gridwatch/internal/rules/interfaces/http"
	telemetrypostgres "gridwatch/internal/telemetry/infrastructure/postgres"
	telemetryredis "gridwatch/internal/telemetry/infrastructure/redis"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	monitorCfg, err := ruleapp.LoadConfig()
	if err != nil {
		logger.Fatalf("monitor config error: %v", err)
	}

	ruleRepo := rulerepo.NewRuleRepository(db)
	alarmStore := alarmrepo.NewAlarmRepository(db)
	assetRepo := masterdatarepo.NewAssetRepository(db)
	readingRepo := telemetrypostgres.NewReadingRepository(db)

	if monitorCfg.SeedRules {
		seeded, err := ruleRepo.SeedBuiltins(context.Background(), rules.BuiltinRules())
		if err != nil {
			logger.Fatalf("rule seed error: %v", err)
		}
		logger.Printf("rule catalog seeded: added=%d", seeded)
	}

	alarmBroker := alarmhttp.NewSSEBroker()
	alarmNotifiers := []alarmapp.AlarmNotifier{alarmBroker}
	if monitorCfg.WebhookURL != "" {
		channel, err := alarmnotify.NewWebhookChannel(monitorCfg.WebhookURL)
		if err != nil {
			logger.Fatalf("alarm webhook error: %v", err)
		}
		tpl, err := alarmnotify.NewTemplate(cfg.AlarmNotifyTemplate)
		if err != nil {
			logger.Fatalf("alarm template error: %v", err)
		}
		alarmNotifier, err := alarmnotify.NewNotifier(ruleRepo, alarmStore, channel, tpl,
			alarmnotify.WithEscalation(cfg.AlarmEscalationAfter),
			alarmnotify.WithCooldown(cfg.AlarmNotifyCooldown),
			alarmnotify.WithDedupeWindow(cfg.AlarmNotifyDedupeWindow),
			alarmnotify.WithRequestTimeout(cfg.AlarmNotifyTimeout),
		)
		if err != nil {
			logger.Fatalf("alarm notifier error: %v", err)
		}
		alarmNotifiers = append(alarmNotifiers, alarmNotifier)
	}

	var readingCache ruleapp.ReadingCache
	if cfg.RedisAddr != "" {
		redisClient, err := telemetryredis.NewClient(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("redis connect error: %v", err)
		}
		cache, err := telemetryredis.NewReadingCache(redisClient, telemetryredis.WithTTL(cfg.ReadingCacheTTL))
		if err != nil {
			logger.Fatalf("reading cache error: %v", err)
		}
		readingCache = cache
		publisher, err := alarmnotify.NewRedisPublisher(redisClient, "")
		if err != nil {
			logger.Fatalf("redis publisher error: %v", err)
		}
		alarmNotifiers = append(alarmNotifiers, publisher)
	}

	alarmService, err := alarmapp.NewService(alarmStore, alarmapp.WithNotifier(alarmnotify.NewMultiNotifier(alarmNotifiers...)))
	if err != nil {
		logger.Fatalf("alarm service error: %v", err)
	}

	monitorOpts := []ruleapp.MonitorOption{
		ruleapp.WithWorkers(monitorCfg.Workers),
		ruleapp.WithLogger(logger),
	}
	if readingCache != nil {
		monitorOpts = append(monitorOpts, ruleapp.WithReadingCache(readingCache))
	}
	monitor, err := ruleapp.NewMonitor(ruleRepo, assetRepo, readingRepo, alarmService, monitorOpts...)
	if err != nil {
		logger.Fatalf("monitor error: %v", err)
	}

	scheduler := ruleapp.NewScheduler(monitor, monitorCfg.EvaluationInterval(), logger)
	go scheduler.Start(context.Background())

	alarmHandler, err := alarmhttp.NewHandler(alarmService, auditRepo)
	if err != nil {
		logger.Fatalf("alarm handler error: %v", err)
	}
	ruleHandler, err := rulehttp.NewHandler(ruleRepo, monitor, auditRepo, logger)
	if err != nil {
		logger.Fatalf("rule handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/evaluate", ruleHandler)
	mux.Handle("/api/v1/rules", ruleHandler)
	mux.Handle("/api/v1/rules/", ruleHandler)
	mux.Handle("/api/v1/alarms/stream", alarmhttp.NewStreamHandler(alarmBroker))
	mux.Handle("/api/v1/alarms", alarmHandler)
	mux.Handle("/api/v1/alarms/", alarmHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL             string
	HTTPAddr                string
	JWTSecret               string
	AlarmNotifyTemplate     string
	AlarmEscalationAfter    time.Duration
	AlarmNotifyCooldown     time.Duration
	AlarmNotifyDedupeWindow time.Duration
	AlarmNotifyTimeout      time.Duration
	RedisAddr               string
	RedisPassword           string
	RedisDB                 int
	ReadingCacheTTL         time.Duration
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:             getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:                getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:               getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		AlarmNotifyTemplate:     getenvDefault("ALARM_NOTIFY_TEMPLATE", ""),
		AlarmEscalationAfter:    getenvDuration("ALARM_ESCALATION_AFTER", 0),
		AlarmNotifyCooldown:     getenvDuration("ALARM_NOTIFY_COOLDOWN", 0),
		AlarmNotifyDedupeWindow: getenvDuration("ALARM_NOTIFY_DEDUP_WINDOW", 0),
		AlarmNotifyTimeout:      getenvDuration("ALARM_NOTIFY_TIMEOUT", 5*time.Second),
		RedisAddr:               getenvDefault("REDIS_ADDR", ""),
		RedisPassword:           getenvDefault("REDIS_PASSWORD", ""),
		RedisDB:                 getenvIntDefault("REDIS_DB", 0),
		ReadingCacheTTL:         getenvDuration("READING_CACHE_TTL", 0),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
