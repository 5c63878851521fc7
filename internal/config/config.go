package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Auth   AuthConfig   `mapstructure:"auth"`

	Feed       FeedConfig       `mapstructure:"feed"`
	Streak     StreakConfig     `mapstructure:"streak"`
	Prediction PredictionConfig `mapstructure:"prediction"`
	Betting    BettingConfig    `mapstructure:"betting"`
	Retention  RetentionConfig  `mapstructure:"retention"`
}

type AppConfig struct {
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	AdminUsername string        `mapstructure:"admin_username"`
	AdminPassword string        `mapstructure:"admin_password"`
}

// FeedConfig covers the upstream lobby/room websocket feed.
type FeedConfig struct {
	Host            string        `mapstructure:"host"`
	Origin          string        `mapstructure:"origin"`
	UserAgent       string        `mapstructure:"user_agent"`
	Features        string        `mapstructure:"features"`
	LivenessTimeout time.Duration `mapstructure:"liveness_timeout"`
	ProbeTimeout    time.Duration `mapstructure:"probe_timeout"`
	MaxReconnects   int           `mapstructure:"max_reconnects"`
	ReconnectWindow time.Duration `mapstructure:"reconnect_window"`
	SendTimeout     time.Duration `mapstructure:"send_timeout"`
	ReadLimit       int64         `mapstructure:"read_limit"`
}

type StreakConfig struct {
	PlayerStreak int `mapstructure:"player_streak"`
	BankerStreak int `mapstructure:"banker_streak"`
	MinResults   int `mapstructure:"min_results"`
}

type PredictionConfig struct {
	Algorithm           string  `mapstructure:"algorithm"`
	SampleSize          int     `mapstructure:"sample_size"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	LossLimit           int     `mapstructure:"loss_limit"`
}

type BettingConfig struct {
	Amount    int64  `mapstructure:"amount"`
	MaxRounds int    `mapstructure:"max_rounds"`
	Strategy  string `mapstructure:"strategy"`
}

type RetentionConfig struct {
	RawEvents  time.Duration `mapstructure:"raw_events"`
	BetSignals time.Duration `mapstructure:"bet_signals"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("auth.token_ttl", "12h")
	v.SetDefault("auth.admin_username", "admin")

	v.SetDefault("feed.host", "skylinestart.evo-games.com")
	v.SetDefault("feed.origin", "https://skylinestart.evo-games.com")
	v.SetDefault("feed.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	v.SetDefault("feed.features", "opensAt,multipleHero,shortThumbnails,skipInfosPublished,smc,uniRouletteHistory,bacHistoryV2,filters,tableDecorations")
	v.SetDefault("feed.liveness_timeout", "30s")
	v.SetDefault("feed.probe_timeout", "10s")
	v.SetDefault("feed.max_reconnects", 3)
	v.SetDefault("feed.reconnect_window", "60s")
	v.SetDefault("feed.send_timeout", "5s")
	v.SetDefault("feed.read_limit", 2<<20)

	v.SetDefault("streak.player_streak", 3)
	v.SetDefault("streak.banker_streak", 3)
	v.SetDefault("streak.min_results", 10)

	v.SetDefault("prediction.algorithm", "choice_pick")
	v.SetDefault("prediction.sample_size", 15)
	v.SetDefault("prediction.confidence_threshold", 0.6)
	v.SetDefault("prediction.loss_limit", 3)

	v.SetDefault("betting.amount", 1000)
	v.SetDefault("betting.max_rounds", 10)
	v.SetDefault("betting.strategy", "follow_streak")

	v.SetDefault("retention.raw_events", "24h")
	v.SetDefault("retention.bet_signals", "168h")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			// A missing file just means defaults + env.
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
