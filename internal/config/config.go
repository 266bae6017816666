package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mind-engage/mindengage-assess/internal/grading"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode      Mode
	HTTPAddr  string
	PublicURL string

	DBDriver string
	DBDSN    string
	SiteID   string

	AuthHMACSecret  string
	EnableLocalAuth bool
	AdminUser       string
	AdminPassHash   string // bcrypt

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	LogLevel string
	LogFile  string

	RedisAddr   string
	GuestLimit  int
	GuestWindow time.Duration

	SessionTick time.Duration
	SessionTTL  time.Duration

	MetricsEnabled bool

	// nil means the built-in curve
	ExamBands grading.Banding
	QuizBands grading.Banding
}

// CORSOrigins returns the allow-list for the current mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func defaults(v *viper.Viper) {
	v.SetDefault("mode", string(ModeOffline))
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("public_url", "")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_dsn", "")
	v.SetDefault("site_id", "local")
	v.SetDefault("auth_hmac_secret", "dev-secret-change-me")
	v.SetDefault("enable_local_auth", true)
	v.SetDefault("admin_user", "admin")
	v.SetDefault("admin_pass_hash", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji")
	v.SetDefault("cors_origins_online", "https://assess.mindengage.ai")
	v.SetDefault("cors_origins_offline", "http://localhost:3000,http://localhost:3010,http://localhost:3020")
	v.SetDefault("log_level", "")
	v.SetDefault("log_file", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("guest_limit", 30)
	v.SetDefault("guest_window", time.Hour)
	v.SetDefault("session_tick", time.Second)
	v.SetDefault("session_ttl", 2*time.Hour)
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("config_file", "")
}

// Load reads the environment and, when CONFIG_FILE names one, a yaml file.
// Environment variables win over the file.
func Load() (Config, error) {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	mode := Mode(strings.ToLower(v.GetString("mode")))
	if mode != ModeOnline {
		mode = ModeOffline
	}
	level := v.GetString("log_level")
	if level == "" {
		level = "info"
		if mode == ModeOffline {
			level = "debug"
		}
	}

	cfg := Config{
		Mode:               mode,
		HTTPAddr:           v.GetString("http_addr"),
		PublicURL:          v.GetString("public_url"),
		DBDriver:           v.GetString("db_driver"),
		DBDSN:              v.GetString("db_dsn"),
		SiteID:             v.GetString("site_id"),
		AuthHMACSecret:     v.GetString("auth_hmac_secret"),
		EnableLocalAuth:    v.GetBool("enable_local_auth"),
		AdminUser:          v.GetString("admin_user"),
		AdminPassHash:      v.GetString("admin_pass_hash"),
		CORSOriginsOnline:  splitCSV(v.GetString("cors_origins_online")),
		CORSOriginsOffline: splitCSV(v.GetString("cors_origins_offline")),
		LogLevel:           level,
		LogFile:            v.GetString("log_file"),
		RedisAddr:          v.GetString("redis_addr"),
		GuestLimit:         v.GetInt("guest_limit"),
		GuestWindow:        v.GetDuration("guest_window"),
		SessionTick:        v.GetDuration("session_tick"),
		SessionTTL:         v.GetDuration("session_ttl"),
		MetricsEnabled:     v.GetBool("metrics_enabled"),
	}

	var err error
	if cfg.ExamBands, err = bands(v, "grading.exam_bands"); err != nil {
		return Config{}, err
	}
	if cfg.QuizBands, err = bands(v, "grading.quiz_bands"); err != nil {
		return Config{}, err
	}
	if cfg.SessionTick <= 0 {
		return Config{}, fmt.Errorf("SESSION_TICK must be positive, got %s", cfg.SessionTick)
	}
	return cfg, nil
}

func bands(v *viper.Viper, key string) (grading.Banding, error) {
	if !v.IsSet(key) {
		return nil, nil
	}
	var b grading.Banding
	if err := v.UnmarshalKey(key, &b); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// GraderOptions turns configured bandings into grader options.
func (c Config) GraderOptions() []grading.Option {
	var opts []grading.Option
	if c.ExamBands != nil {
		opts = append(opts, grading.WithBanding(grading.KindExam, c.ExamBands))
	}
	if c.QuizBands != nil {
		opts = append(opts, grading.WithBanding(grading.KindQuiz, c.QuizBands))
	}
	return opts
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
