package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrNotFound 레코드 없음
	ErrNotFound = errors.New("record not found")
	// ErrConflict 다른 사용자가 같은 ID를 사용 중
	ErrConflict = errors.New("record owned by another user")
)

// Config 데이터베이스 설정
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	Debug    bool
}

// DB 데이터베이스 인스턴스
type DB struct {
	*gorm.DB
}

// New 새 MySQL 데이터베이스 연결 생성
func New(cfg *Config) (*DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := gorm.Open(mysql.Open(dsn), gormConfig(cfg.Debug))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 커넥션 풀 설정
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &DB{db}, nil
}

// NewSQLite SQLite 데이터베이스 연결 생성 (로컬 실행 및 테스트용)
// path가 ":memory:"이면 인메모리 DB
func NewSQLite(path string, debug bool) (*DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig(debug))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// 인메모리 DB는 커넥션마다 별도 DB가 생기므로 단일 커넥션 유지
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return &DB{db}, nil
}

func gormConfig(debug bool) *gorm.Config {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}
	return &gorm.Config{
		Logger:                                   logger.Default.LogMode(logLevel),
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}

// Migrate 데이터베이스 마이그레이션 (GORM AutoMigrate)
func (db *DB) Migrate() error {
	return db.AutoMigrate(
		&PipelineRecord{},
		&CategoryRecord{},
		&StatusMessageRecord{},
	)
}

// Close 데이터베이스 연결 종료
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 헬스체크
func (db *DB) Health() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
