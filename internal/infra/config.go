package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации консоли.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	API       APIConfig       `mapstructure:"api"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера консоли.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequireSession  bool          `mapstructure:"require_session"` // закрывать /api/v1/dashboard без токена
	AllowedOrigins  []string      `mapstructure:"allowed_origins"` // для WebSocket, пусто = тот же хост
}

// APIConfig — вышестоящий REST API TwinSecure.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // запросов в секунду
	RateBurst int           `mapstructure:"rate_burst"`

	// Настройки Circuit Breaker для вышестоящего API
	CBMaxRequests      uint32        `mapstructure:"cb_max_requests"`
	CBInterval         time.Duration `mapstructure:"cb_interval"`
	CBTimeout          time.Duration `mapstructure:"cb_timeout"`
	CBFailureThreshold uint32        `mapstructure:"cb_failure_threshold"`
}

// DashboardConfig — поведение оркестратора обновлений.
type DashboardConfig struct {
	// Подмена упавших сущностей образцами. В проде всегда false.
	UseFallbackSampleData bool          `mapstructure:"use_fallback_sample_data"`
	RefreshInterval       int           `mapstructure:"refresh_interval"` // секунды, 0 = выключено
	AttackVectorLimit     int           `mapstructure:"attack_vector_limit"`
	AttackerLimit         int           `mapstructure:"attacker_limit"`
	HistorySize           int           `mapstructure:"history_size"`
	HistoryFlushInterval  time.Duration `mapstructure:"history_flush_interval"`
}

// RedisConfig — хранилище пользовательских настроек и канал уведомлений.
// Пустой Addr — работаем в памяти.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DatabaseConfig — PostgreSQL для истории обновлений. Пустой URL — без БД.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int    `mapstructure:"max_conns"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// Addr — адрес для http.Server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadDotEnv подтягивает .env в окружение процесса. Отсутствие файла не ошибка.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error loading %s: %w", p, err)
		}
	}
	return nil
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
// Без аргументов ищет config.yaml в корне и в ./configs.
func LoadConfig(searchPaths ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(searchPaths) == 0 {
		searchPaths = []string{".", "./configs"}
	}
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	// API_BASE_URL=... перекроет api.base_url
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MaxResultLimit — предел limit для /alerts/attack-vectors и /alerts/attackers.
const MaxResultLimit = 20

// Validate проверяет значения, с которыми вышестоящий API заведомо не справится.
// Нулевые лимиты допустимы: оркестратор подставит свои значения.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.Dashboard.RefreshInterval < 0 {
		return fmt.Errorf("config: dashboard.refresh_interval must be >= 0, got %d", c.Dashboard.RefreshInterval)
	}
	if c.Dashboard.AttackVectorLimit < 0 || c.Dashboard.AttackVectorLimit > MaxResultLimit {
		return fmt.Errorf("config: dashboard.attack_vector_limit must be within 0..%d, got %d", MaxResultLimit, c.Dashboard.AttackVectorLimit)
	}
	if c.Dashboard.AttackerLimit < 0 || c.Dashboard.AttackerLimit > MaxResultLimit {
		return fmt.Errorf("config: dashboard.attacker_limit must be within 0..%d, got %d", MaxResultLimit, c.Dashboard.AttackerLimit)
	}
	if c.API.RateLimit <= 0 {
		return fmt.Errorf("config: api.rate_limit must be positive, got %v", c.API.RateLimit)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.require_session", true)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.rate_limit", 50)
	v.SetDefault("api.rate_burst", 16)
	v.SetDefault("api.cb_max_requests", 3)
	v.SetDefault("api.cb_interval", 30*time.Second)
	v.SetDefault("api.cb_timeout", 15*time.Second)
	v.SetDefault("api.cb_failure_threshold", 5)

	v.SetDefault("dashboard.use_fallback_sample_data", false)
	v.SetDefault("dashboard.refresh_interval", 0)
	v.SetDefault("dashboard.attack_vector_limit", 5)
	v.SetDefault("dashboard.attacker_limit", 5)
	v.SetDefault("dashboard.history_size", 100)
	v.SetDefault("dashboard.history_flush_interval", 2*time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 5)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}
