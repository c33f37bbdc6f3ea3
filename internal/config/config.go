package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"github.com/thereayou/eventchat/internal/services"
)

var validate = validator.New()

type Config struct {
	Port                  int           `env:"PORT,default=3000" validate:"min=1,max=65535"`
	DatabaseURL           string        `env:"DATABASE_URL,required=true" validate:"required"`
	RedisURL              string        `env:"REDIS_URL"`
	JWTSecret             string        `env:"JWT_SECRET,required=true" validate:"required"`
	AccessTokenCookie     string        `env:"ACCESS_TOKEN_COOKIE,default=accessToken"`
	ChatPathPrefix        string        `env:"CHAT_PATH_PREFIX,default=/ws/chats/" validate:"min=2,startswith=/,endswith=/"`
	HeartbeatInterval     time.Duration `env:"HEARTBEAT_INTERVAL,default=30s" validate:"gt=0"`
	WriteWait             time.Duration `env:"WRITE_WAIT,default=10s" validate:"gt=0"`
	MaxMessageSize        int64         `env:"MAX_MESSAGE_SIZE,default=65536" validate:"gt=0"`
	SendBufferSize        int           `env:"SEND_BUFFER_SIZE,default=256" validate:"gt=0"`
	AuthzFailurePolicy    string        `env:"AUTHZ_FAILURE_POLICY,default=open" validate:"oneof=open closed"`
	IdentityFailurePolicy string        `env:"IDENTITY_FAILURE_POLICY,default=open" validate:"oneof=open closed"`
	AllowGuestJoin        bool          `env:"ALLOW_GUEST_JOIN,default=true"`
	AllowedOrigins        string        `env:"ALLOWED_ORIGINS"`
	LogLevel              string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
	ShutdownTimeout       time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`
}

// Load читает .env.local, затем .env (если есть), затем окружение.
// Переменные окружения имеют приоритет над файлами.
func Load(log *slog.Logger) (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Debug(".env not found, using environment variables")
		}
	}
	return FromEnviron()
}

func FromEnviron() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Origins — список разрешённых Origin. Пустой список разрешает всё.
func (c *Config) Origins() []string {
	parts := lo.Map(strings.Split(c.AllowedOrigins, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})
	parts = lo.Compact(parts)
	if lo.Contains(parts, "*") {
		return nil
	}
	return parts
}

func (c *Config) AuthzPolicy() services.FailurePolicy {
	p, _ := services.ParseFailurePolicy(c.AuthzFailurePolicy)
	return p
}

func (c *Config) IdentityPolicy() services.FailurePolicy {
	p, _ := services.ParseFailurePolicy(c.IdentityFailurePolicy)
	return p
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
