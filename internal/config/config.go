package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
	Env     string `mapstructure:"env"`
}

// Production reports whether cookies must carry the Secure flag.
func (s ServerConfig) Production() bool {
	return strings.EqualFold(s.Env, "production")
}

type DatabaseConfig struct {
	Driver  string `mapstructure:"driver"`
	URL     string `mapstructure:"url"`
	Path    string `mapstructure:"path"`
	LogMode bool   `mapstructure:"log_mode"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type SecurityConfig struct {
	BcryptCost    int    `mapstructure:"bcrypt_cost"`
	EncryptionKey string `mapstructure:"encryption_key"`
}

type LogConfig struct {
	File   string `mapstructure:"file"`
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type BackupConfig struct {
	Dir string `mapstructure:"dir"`
}

type AppSubConfig struct {
	PageSize       int    `mapstructure:"page_size"`
	MemberPageSize int    `mapstructure:"member_page_size"`
	OrgName        string `mapstructure:"org_name"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Security SecurityConfig `mapstructure:"security"`
	Log      LogConfig      `mapstructure:"log"`
	Backup   BackupConfig   `mapstructure:"backup"`
	App      AppSubConfig   `mapstructure:"app"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.env", "development")

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/finance.db")
	v.SetDefault("database.log_mode", false)

	v.SetDefault("jwt.issuer", "finance-portal")
	v.SetDefault("jwt.expire_hours", 24*7)

	v.SetDefault("security.bcrypt_cost", 12)
	v.SetDefault("security.encryption_key", "")

	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("backup.dir", "data/backups")

	v.SetDefault("app.page_size", 30)
	v.SetDefault("app.member_page_size", 24)
	v.SetDefault("app.org_name", "Finance Office")
}

// Load reads configuration from the given YAML file (optional) and the
// environment. A .env file in the working directory is loaded first.
// If path is empty, "config.yaml" in the working directory is tried.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	// environment overrides, e.g. FP_SERVER_PORT=9000
	v.SetEnvPrefix("FP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// well-known names shared with other tooling
	_ = v.BindEnv("database.url", "FP_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("jwt.secret", "FP_JWT_SECRET", "AUTH_SECRET")
	_ = v.BindEnv("server.env", "FP_SERVER_ENV", "APP_ENV")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
		case path != "" && os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if strings.HasPrefix(c.Database.URL, "postgres://") || strings.HasPrefix(c.Database.URL, "postgresql://") {
		c.Database.Driver = DriverPostgres
	}

	// audit fields and backups fall back to the signing secret
	if c.Security.EncryptionKey == "" {
		c.Security.EncryptionKey = c.JWT.Secret
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the settings the process cannot run without.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.JWT.Secret) == "" {
		problems = append(problems, "signing secret is empty (set AUTH_SECRET or jwt.secret)")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Server.Port))
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			problems = append(problems, "database.path is required for sqlite")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			problems = append(problems, "database.url is required for postgres")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown database driver %q", c.Database.Driver))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
