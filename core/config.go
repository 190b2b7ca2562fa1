package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address         string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	BackendConfig struct {
		BaseURL string
		Token   string
		Timeout time.Duration
	}

	StoreConfig struct {
		ErrorDisplayDelay time.Duration
	}

	Config struct {
		AppName      string
		Env          string // DEV (local; default), TEST, QA, PROD
		Build        string
		Debug        bool
		TestMode     bool
		Demo         bool // serve from the in-memory backend
		RollbarToken string

		Server  ServerConfig
		Backend BackendConfig
		Store   StoreConfig
	}
)

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Registrar")
	conf.SetDefault("build", "develop")
	conf.SetDefault("demo", false)
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("server.address", ":8000")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("backend.baseURL", "http://localhost:8080/api")
	conf.SetDefault("backend.token", "")
	conf.SetDefault("backend.timeout", 15*time.Second)
	conf.SetDefault("store.errorDisplayDelay", 5*time.Second)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		AppName:      conf.GetString("appName"),
		Env:          env,
		Build:        conf.GetString("build"),
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		Demo:         conf.GetBool("demo"),
		RollbarToken: conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Address:         conf.GetString("server.address"),
			DebugHost:       conf.GetString("server.debugHost"),
			ShutdownTimeout: conf.GetDuration("server.shutdownTimeout"),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(conf.GetString("backend.baseURL"), "/"),
			Token:   conf.GetString("backend.token"),
			Timeout: conf.GetDuration("backend.timeout"),
		},
		Store: StoreConfig{
			ErrorDisplayDelay: conf.GetDuration("store.errorDisplayDelay"),
		},
	}
}
