package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string `mapstructure:"env"`
		Debug            bool   `mapstructure:"debug"`
		TestMode         bool   `mapstructure:"testMode"`
		AppName          string `mapstructure:"appName"`
		Build            string `mapstructure:"build"`
		SecretKey        string `mapstructure:"secretKey"`
		FrontendBaseURL  string `mapstructure:"frontendBaseUrl"`
		SendgridApiKey   string `mapstructure:"sendgridApiKey"`
		RollbarToken     string `mapstructure:"rollbarToken"`
		WorkDir          string `mapstructure:"-"`
		DefaultFromEmail string `mapstructure:"defaultFromEmail"`

		Server   ServerConfig   `mapstructure:"server"`
		Database DatabaseConfig `mapstructure:"database"`
		Storage  StorageConfig  `mapstructure:"storage"`
	}

	ServerConfig struct {
		Host               string        `mapstructure:"host"`
		Address            string        `mapstructure:"address"`
		DebugHost          string        `mapstructure:"debugHost"`
		JWTExpirationDelta time.Duration `mapstructure:"jwtExpirationDelta"`
		ReadTimeout        time.Duration `mapstructure:"readTimeout"`
		WriteTimeout       time.Duration `mapstructure:"writeTimeout"`
		ShutdownTimeout    time.Duration `mapstructure:"shutdownTimeout"`
		DisableReqLogs     bool          `mapstructure:"disableReqLogs"`
	}

	DatabaseConfig struct {
		Engine        string `mapstructure:"engine"` // postgres | memory
		Host          string `mapstructure:"host"`
		Port          string `mapstructure:"port"`
		Name          string `mapstructure:"name"`
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		AdminUser     string `mapstructure:"adminUser"`
		AdminPassword string `mapstructure:"adminPassword"`
		DisableTLS    bool   `mapstructure:"disableTLS"`
	}

	StorageConfig struct {
		Driver           string        `mapstructure:"driver"` // local | s3 | b2
		Root             string        `mapstructure:"root"`
		MaxUploadSize    string        `mapstructure:"maxUploadSize"`
		SweepSchedule    string        `mapstructure:"sweepSchedule"`
		SweepGracePeriod time.Duration `mapstructure:"sweepGracePeriod"`
		S3               S3Config      `mapstructure:"s3"`
		B2               B2Config      `mapstructure:"b2"`
	}

	S3Config struct {
		Endpoint  string `mapstructure:"endpoint"`
		Region    string `mapstructure:"region"`
		Bucket    string `mapstructure:"bucket"`
		AccessKey string `mapstructure:"accessKey"`
		SecretKey string `mapstructure:"secretKey"`
	}

	B2Config struct {
		AccountID      string `mapstructure:"accountId"`
		ApplicationKey string `mapstructure:"applicationKey"`
		Bucket         string `mapstructure:"bucket"`
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c Config) DefaultFromAddress() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
}

// NewConfig loads the app configuration: defaults < config/.env.<env> < environment variables.
func NewConfig() *Config {
	v := viper.New()

	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Elimu")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "vq8-3n!x#r@_k2l0h$8bz=jb^6cu9o%f1t*g)w4a+e5s7d(mp")
	v.SetDefault("frontendBaseUrl", "http://localhost:3000")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.jwtExpirationDelta", 8*time.Hour)
	v.SetDefault("server.readTimeout", 10*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "elimu")
	v.SetDefault("database.user", "elimu")
	v.SetDefault("database.password", "elimu")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.root", filepath.Join("wwwroot", "uploads"))
	v.SetDefault("storage.maxUploadSize", "20M")
	v.SetDefault("storage.sweepSchedule", "@daily")
	v.SetDefault("storage.sweepGracePeriod", time.Hour)
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.accessKey", "")
	v.SetDefault("storage.s3.secretKey", "")
	v.SetDefault("storage.b2.accountId", "")
	v.SetDefault("storage.b2.applicationKey", "")
	v.SetDefault("storage.b2.bucket", "")

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
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		log.Fatalf("config.Unmarshal: %v", err)
	}
	conf.Env = env
	conf.WorkDir = wd
	return conf
}
