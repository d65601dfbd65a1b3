package db

import (
	"fmt"
	"os"
	"time"

	m "portfoliotracker/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Storage struct {
	db  *gorm.DB
	rds *redis.Client
	lg  zerolog.Logger
}

func NewStorage(dc *DbConfig, rc *RedisConfig, opts ...gorm.Option) (*Storage, error) {

	lg := zerolog.New(os.Stdout).With().Str("Module", "Storage").Timestamp().Logger()

	dialector, err := dc.dialector()
	if err != nil {
		return nil, err
	}

	// gorm's sql log goes through the storage logger
	gormLogger := logger.New(
		&lg,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	opts = append([]gorm.Option{&gorm.Config{Logger: gormLogger}}, opts...)
	db, err := gorm.Open(dialector, opts...)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	var rds *redis.Client
	if rc != nil {
		rds = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", rc.ip, rc.port),
			Password: rc.password,
			DB:       rc.db,
		})
	}

	return &Storage{
		db:  db,
		rds: rds,
		lg:  lg,
	}, nil
}

// Migrate creates or updates every table.
func (s Storage) Migrate() error {
	err := s.db.AutoMigrate(&m.Profile{}, &m.APIKey{}, &m.ManualAsset{}, &m.AssetCostBasis{},
		&m.Portfolio{}, &m.PortfolioAsset{}, &m.SavedAnalysis{}, &m.PortfolioReview{})
	if err != nil {
		return fmt.Errorf("Migrate failed. %w", err)
	}
	s.lg.Info().Msg("Migrated tables")
	return nil
}

type DbConfig struct {
	driver   string
	user     string
	password string
	ip       string
	port     string
	scheme   string
	sslmode  string
}

func NewDbConfig(driver, user, password, ip, port, scheme, sslmode string) *DbConfig {
	return &DbConfig{
		driver:   driver,
		user:     user,
		password: password,
		ip:       ip,
		port:     port,
		scheme:   scheme,
		sslmode:  sslmode,
	}
}

func (c DbConfig) Dsn() string {
	switch c.driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local", c.user, c.password, c.ip, c.port, c.scheme)
	default:
		sslmode := c.sslmode
		if sslmode == "" {
			sslmode = "require"
		}
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC", c.ip, c.user, c.password, c.scheme, c.port, sslmode)
	}
}

func (c DbConfig) dialector() (gorm.Dialector, error) {
	switch c.driver {
	case "", "postgres":
		return postgres.Open(c.Dsn()), nil
	case "mysql":
		return mysql.Open(c.Dsn()), nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", c.driver)
	}
}

type RedisConfig struct {
	password string
	ip       string
	port     string
	db       int
}

func NewRedisConfig(password string, ip string, port string, db int) *RedisConfig {
	return &RedisConfig{
		password: password,
		ip:       ip,
		port:     port,
		db:       db,
	}
}
