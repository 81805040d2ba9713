package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	CORS        CORSConfig
	Log         LogConfig
	Timetable   TimetableConfig
	Planner     PlannerConfig
	Spreadsheet SpreadsheetConfig
	Exports     ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TimetableConfig tunes the grid endpoints.
type TimetableConfig struct {
	CacheTTL time.Duration
}

// PlannerConfig bounds the combination search and its plan cache.
type PlannerConfig struct {
	Workers       int
	QueueSize     int
	MaxCandidates int
	NodeBudget    int
	PlanTTL       time.Duration
	RequestWait   time.Duration
}

// SpreadsheetConfig holds the merged-cell template geometry for the xlsx
// ingestion adapter. Offsets are 1-based; an empty Sheet means the first
// sheet in the workbook.
type SpreadsheetConfig struct {
	Sheet        string
	DataStartRow int
	DateCol      int
	MajorCol     int
	SubjectCol   int
	SectionCol   int
	TeacherCol   int
	WeekdayCol   int
	SessionCol   int
	RoomCol      int
}

// ExportsConfig controls rendered grid exports.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Timetable = TimetableConfig{
		CacheTTL: parseDuration(v.GetString("TIMETABLE_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Planner = PlannerConfig{
		Workers:       v.GetInt("PLANNER_WORKERS"),
		QueueSize:     v.GetInt("PLANNER_QUEUE_SIZE"),
		MaxCandidates: v.GetInt("PLANNER_MAX_CANDIDATES"),
		NodeBudget:    v.GetInt("PLANNER_NODE_BUDGET"),
		PlanTTL:       parseDuration(v.GetString("PLANNER_PLAN_TTL"), 30*time.Minute),
		RequestWait:   parseDuration(v.GetString("PLANNER_REQUEST_WAIT"), 15*time.Second),
	}

	cfg.Spreadsheet = SpreadsheetConfig{
		Sheet:        v.GetString("SHEET_NAME"),
		DataStartRow: v.GetInt("SHEET_DATA_START_ROW"),
		DateCol:      v.GetInt("SHEET_DATE_COL"),
		MajorCol:     v.GetInt("SHEET_MAJOR_COL"),
		SubjectCol:   v.GetInt("SHEET_SUBJECT_COL"),
		SectionCol:   v.GetInt("SHEET_SECTION_COL"),
		TeacherCol:   v.GetInt("SHEET_TEACHER_COL"),
		WeekdayCol:   v.GetInt("SHEET_WEEKDAY_COL"),
		SessionCol:   v.GetInt("SHEET_SESSION_COL"),
		RoomCol:      v.GetInt("SHEET_ROOM_COL"),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 30*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "unitime")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TIMETABLE_CACHE_TTL", "5m")

	v.SetDefault("PLANNER_WORKERS", 2)
	v.SetDefault("PLANNER_QUEUE_SIZE", 16)
	v.SetDefault("PLANNER_MAX_CANDIDATES", 8)
	v.SetDefault("PLANNER_NODE_BUDGET", 20000)
	v.SetDefault("PLANNER_PLAN_TTL", "30m")
	v.SetDefault("PLANNER_REQUEST_WAIT", "15s")

	// Built-in sheet template: merged date blocks in column A, one row per
	// weekday clause, section metadata in the block's first row.
	v.SetDefault("SHEET_NAME", "")
	v.SetDefault("SHEET_DATA_START_ROW", 3)
	v.SetDefault("SHEET_DATE_COL", 1)
	v.SetDefault("SHEET_MAJOR_COL", 2)
	v.SetDefault("SHEET_SUBJECT_COL", 3)
	v.SetDefault("SHEET_SECTION_COL", 4)
	v.SetDefault("SHEET_TEACHER_COL", 5)
	v.SetDefault("SHEET_WEEKDAY_COL", 6)
	v.SetDefault("SHEET_SESSION_COL", 7)
	v.SetDefault("SHEET_ROOM_COL", 8)

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "30m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
