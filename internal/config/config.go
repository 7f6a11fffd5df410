package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Web         WebConfig         `yaml:"web"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Attendance  AttendanceConfig  `yaml:"attendance"`
	Redis       RedisConfig       `yaml:"redis"`
	Log         LogConfig         `yaml:"log"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"`         // postgres or mariadb
	URL          string `yaml:"url"`            // PostgreSQL URL or MariaDB DSN
	MaxOpenConns int    `yaml:"max_open_conns"` // Maximum open connections (default 25)
	MaxIdleConns int    `yaml:"max_idle_conns"` // Maximum idle connections (default 5)
}

type WebConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RecognizeRate  float64  `yaml:"recognize_rate"`  // recognitions per second per client
	RecognizeBurst int      `yaml:"recognize_burst"` // burst size per client
}

type RecognitionConfig struct {
	Detector        string  `yaml:"detector"`          // pigo or opencv
	CascadePath     string  `yaml:"cascade_path"`      // detector cascade file
	Threshold       float64 `yaml:"threshold"`         // reject matches at or above this distance
	FaceSize        int     `yaml:"face_size"`         // canonical sample edge in pixels
	MinFaceSize     int     `yaml:"min_face_size"`     // smallest detectable face in pixels
	IndexMinSamples int     `yaml:"index_min_samples"` // use HNSW from this many samples
}

type AttendanceConfig struct {
	GracePeriod   time.Duration `yaml:"grace_period"`
	SweepSchedule string        `yaml:"sweep_schedule"` // cron expression, empty disables
	Timezone      string        `yaml:"timezone"`
}

// Location resolves the configured time zone, falling back to local time.
func (c *AttendanceConfig) Location() *time.Location {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

type RedisConfig struct {
	Addr     string `yaml:"addr"` // empty disables Redis locking
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // optional rotating log file
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a positive float, returning the default when unset or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s, ok := os.LookupEnv(key); ok {
		return s
	}
	return defaultVal
}

func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Defaults returns the configuration embedded in defaults.yaml.
func Defaults() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return cfg
}

func Load() *Config {
	d := Defaults()

	return &Config{
		Database: DatabaseConfig{
			Driver:       envString("DATABASE_DRIVER", d.Database.Driver),
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", d.Database.MaxIdleConns),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", d.Web.Host),
			Port:           envInt("WEB_PORT", d.Web.Port),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS", d.Web.AllowedOrigins),
			RecognizeRate:  envFloat("WEB_RECOGNIZE_RATE", d.Web.RecognizeRate),
			RecognizeBurst: envInt("WEB_RECOGNIZE_BURST", d.Web.RecognizeBurst),
		},
		Recognition: RecognitionConfig{
			Detector:        envString("FACE_DETECTOR", d.Recognition.Detector),
			CascadePath:     envString("FACE_CASCADE_PATH", d.Recognition.CascadePath),
			Threshold:       envFloat("FACE_MATCH_THRESHOLD", d.Recognition.Threshold),
			FaceSize:        envInt("FACE_SIZE", d.Recognition.FaceSize),
			MinFaceSize:     envInt("FACE_MIN_SIZE", d.Recognition.MinFaceSize),
			IndexMinSamples: envInt("FACE_INDEX_MIN_SAMPLES", d.Recognition.IndexMinSamples),
		},
		Attendance: AttendanceConfig{
			GracePeriod:   envDuration("ATTENDANCE_GRACE_PERIOD", d.Attendance.GracePeriod),
			SweepSchedule: envString("ATTENDANCE_SWEEP_SCHEDULE", d.Attendance.SweepSchedule),
			Timezone:      envString("ATTENDANCE_TIMEZONE", d.Attendance.Timezone),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
		},
		Log: LogConfig{
			Level: envString("LOG_LEVEL", d.Log.Level),
			File:  os.Getenv("LOG_FILE"),
		},
	}
}
