package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/Kshitiz-Mhto/streampipes/internal/api"
	"github.com/Kshitiz-Mhto/streampipes/internal/services"
	"github.com/Kshitiz-Mhto/streampipes/pkg/config"
	"github.com/Kshitiz-Mhto/streampipes/pkg/database"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// Config 서버 설정
type Config struct {
	// Database (SQLitePath가 있으면 MySQL 대신 사용)
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     int    `env:"DB_PORT" envDefault:"3306"`
	DBUser     string `env:"DB_USER" envDefault:"streampipes"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"streampipes"`
	DBName     string `env:"DB_NAME" envDefault:"streampipes"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:""`
	DBDebug    bool   `env:"DB_DEBUG" envDefault:"false"`

	// Redis (명령 전달)
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka (비어 있으면 토픽 준비 생략)
	KafkaBrokers     []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopicPrefix string   `env:"KAFKA_TOPIC_PREFIX" envDefault:"org.apache.streampipes"`

	// Server
	Port      int    `env:"PORT" envDefault:"8030"`
	JWTSecret string `env:"JWT_SECRET" envDefault:"your-secret-key"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	// Users Config
	UsersConfigPath string `env:"USERS_CONFIG_PATH" envDefault:""`

	// Maintenance
	StatusRetention time.Duration `env:"STATUS_RETENTION" envDefault:"168h"`
	MaintenanceCron string        `env:"MAINTENANCE_CRON" envDefault:"0 * * * *"`
	AutoMigrate     bool          `env:"AUTO_MIGRATE" envDefault:"true"`

	// Flags (not from env)
	ShowVersion bool
	Migrate     bool
}

func main() {
	cfg := Config{}

	// 환경변수에서 설정 로드
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing environment variables: %v\n", err)
		os.Exit(1)
	}

	// 명령행 인자 파싱 (환경변수보다 우선)
	var kafkaBrokers string
	flag.StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "Database host")
	flag.IntVar(&cfg.DBPort, "db-port", cfg.DBPort, "Database port")
	flag.StringVar(&cfg.DBUser, "db-user", cfg.DBUser, "Database user")
	flag.StringVar(&cfg.DBPassword, "db-password", cfg.DBPassword, "Database password")
	flag.StringVar(&cfg.DBName, "db-name", cfg.DBName, "Database name")
	flag.StringVar(&cfg.SQLitePath, "sqlite", cfg.SQLitePath, "SQLite database file (overrides MySQL settings)")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address")
	flag.StringVar(&cfg.RedisPassword, "redis-password", cfg.RedisPassword, "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "Redis database number")
	flag.StringVar(&kafkaBrokers, "kafka-brokers", strings.Join(cfg.KafkaBrokers, ","), "Kafka brokers (comma separated)")
	flag.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "JWT secret key")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "API server port")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.UsersConfigPath, "users-config", cfg.UsersConfigPath, "Users config file path (YAML)")
	flag.DurationVar(&cfg.StatusRetention, "status-retention", cfg.StatusRetention, "Pipeline status history retention")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version")
	flag.BoolVar(&cfg.Migrate, "migrate", false, "Run SQL migrations (MySQL) before starting")

	flag.Parse()

	if cfg.ShowVersion {
		fmt.Printf("StreamPipes pipeline backend %s (built: %s)\n", version, buildTime)
		os.Exit(0)
	}

	cfg.KafkaBrokers = splitList(kafkaBrokers)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	// 사용자 설정 로드 (파일 + 환경변수)
	usersConfig := config.LoadUsersConfigFromEnv()
	if cfg.UsersConfigPath != "" {
		fileCfg, err := config.LoadUsersConfig(cfg.UsersConfigPath)
		if err != nil {
			logger.Warn("Failed to load users config", "path", cfg.UsersConfigPath, "error", err)
		} else {
			usersConfig.Merge(fileCfg)
		}
	}
	if len(usersConfig.AdminUsers) > 0 {
		logger.Info("Admin users configured", "users", usersConfig.AdminUsers)
	}

	db, err := openDatabase(&cfg)
	if err != nil {
		logger.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	// 마이그레이션: MySQL은 -migrate 시 SQL 마이그레이션, 그 외에는 AutoMigrate
	switch {
	case cfg.Migrate && cfg.SQLitePath == "":
		logger.Info("Running SQL migrations")
		migrationVersion, err := db.RunMigrations()
		if err != nil {
			logger.Error("Error running migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("Migrations completed", "version", migrationVersion)
	case cfg.AutoMigrate || cfg.Migrate:
		logger.Info("Running database auto migration")
		if err := db.Migrate(); err != nil {
			logger.Error("Error running migrations", "error", err)
			os.Exit(1)
		}
	}

	// Redis 명령 전달 (선택적 - 실패해도 서버 시작)
	checks := map[string]api.HealthChecker{}
	var dispatcher services.CommandDispatcher
	connectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	redisDispatcher, err := services.NewRedisDispatcher(connectCtx, &services.RedisDispatcherConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Logger:   logger,
	})
	cancel()
	if err != nil {
		logger.Warn("Redis connection failed, continuing without Redis", "error", err)
		dispatcher = &services.LogDispatcher{Logger: logger}
	} else {
		defer func() { _ = redisDispatcher.Close() }()
		dispatcher = redisDispatcher
		checks["redis"] = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if !redisDispatcher.IsHealthy(ctx) {
				return fmt.Errorf("redis unreachable")
			}
			return nil
		}
	}

	// Kafka 토픽 준비 (브로커 설정 시)
	var topics services.TopicProvisioner
	if len(cfg.KafkaBrokers) > 0 {
		topics = services.NewKafkaService(&services.KafkaServiceConfig{
			Brokers:     cfg.KafkaBrokers,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Logger:      logger,
		})
		logger.Info("Kafka topic provisioning enabled", "brokers", cfg.KafkaBrokers)
	}

	manager := services.NewPipelineManager(&services.PipelineManagerConfig{
		DB:          db,
		Dispatcher:  dispatcher,
		Topics:      topics,
		SystemOwner: usersConfig.SystemOwner,
		Logger:      logger,
	})

	maintenance := services.NewMaintenanceService(manager, &services.MaintenanceConfig{
		Schedule:  cfg.MaintenanceCron,
		Retention: cfg.StatusRetention,
		Logger:    logger,
	})
	if err := maintenance.Start(); err != nil {
		logger.Warn("Maintenance service failed to start", "error", err)
	} else {
		defer maintenance.Stop()
	}

	server := api.NewServer(&api.ServerConfig{
		DB:          db,
		Manager:     manager,
		JWTSecret:   cfg.JWTSecret,
		UsersConfig: usersConfig,
		Version:     version,
		Logger:      logger,
		Checks:      checks,
	})

	// 서버 시작
	serverErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("Pipeline backend listening", "addr", addr, "version", version)
		serverErr <- server.Run(addr)
	}()

	// 시그널 대기
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutting down", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
}

func openDatabase(cfg *Config) (*database.DB, error) {
	if cfg.SQLitePath != "" {
		return database.NewSQLite(cfg.SQLitePath, cfg.DBDebug)
	}
	return database.New(&database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		Debug:    cfg.DBDebug,
	})
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
