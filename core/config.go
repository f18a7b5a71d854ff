package core

import (
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	DatabaseConfig struct {
		Engine     string `mapstructure:"engine" validate:"oneof=sqlite postgres"`
		Name       string `mapstructure:"name" validate:"required"`
		Host       string `mapstructure:"host"`
		Port       string `mapstructure:"port"`
		User       string `mapstructure:"user"`
		Password   string `mapstructure:"password"`
		DisableTLS bool   `mapstructure:"disableTLS"`
	}

	ServerConfig struct {
		Host            string        `mapstructure:"host"`
		Port            string        `mapstructure:"port" validate:"required"`
		InboundKey      string        `mapstructure:"inboundKey"` // required as `?key=` by the mail webhook when set
		ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout" validate:"gt=0"`
	}

	MailConfig struct {
		Backend   string `mapstructure:"backend" validate:"oneof=console sendgrid"`
		APIKey    string `mapstructure:"apiKey"`
		FromEmail string `mapstructure:"fromEmail" validate:"required,email"`
		FromName  string `mapstructure:"fromName"`
	}

	Config struct {
		Env      string
		Debug    bool   `mapstructure:"debug"`
		TestMode bool   `mapstructure:"testMode"`
		AppName  string `mapstructure:"appName" validate:"required"`
		Build    string `mapstructure:"build"`
		WorkDir  string

		Sigil            string        `mapstructure:"sigil" validate:"required"`
		Interval         time.Duration `mapstructure:"interval" validate:"gt=0"`
		TempAuthInterval time.Duration `mapstructure:"tempAuthInterval" validate:"gt=0"`
		LineLength       int           `mapstructure:"lineLength" validate:"gte=20"`
		MaxParseDepth    int           `mapstructure:"maxParseDepth" validate:"gt=0"`
		LatePenalty      float64       `mapstructure:"latePenalty" validate:"gte=0,lte=1"`
		Credentials      string        `mapstructure:"credentials" validate:"oneof=plain bcrypt"`

		ReplyArchive string `mapstructure:"replyArchive" validate:"required"`
		RollbarToken string `mapstructure:"rollbarToken"`

		Database DatabaseConfig `mapstructure:"database"`
		Server   ServerConfig   `mapstructure:"server"`
		Mail     MailConfig     `mapstructure:"mail"`
	}
)

func (c DatabaseConfig) Address() string {
	if c.Port == "" {
		return c.Host
	}
	return net.JoinHostPort(c.Host, c.Port)
}

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.Mail.FromName, Address: c.Mail.FromEmail}
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "academibot")
	v.SetDefault("build", "dev")
	v.SetDefault("sigil", ":")
	v.SetDefault("interval", 60*time.Second)
	v.SetDefault("tempAuthInterval", 30*time.Minute)
	v.SetDefault("lineLength", 80)
	v.SetDefault("maxParseDepth", 32)
	v.SetDefault("latePenalty", 0.5)
	v.SetDefault("credentials", "plain")
	v.SetDefault("replyArchive", "replies.db")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("database.engine", "sqlite")
	v.SetDefault("database.name", "academibot.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.disableTLS", false)

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.inboundKey", "")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("mail.backend", "console")
	v.SetDefault("mail.apiKey", "")
	v.SetDefault("mail.fromEmail", "academibot@academibot.local")
	v.SetDefault("mail.fromName", "academibot")
}

// LoadConfig reads the configuration from defaults, an optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the upper-cased env, eg. PROD_DATABASE_NAME.
func LoadConfig(workDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	conf.Env = env
	conf.WorkDir = workDir

	if err := Validate.Struct(conf); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	return conf, nil
}
