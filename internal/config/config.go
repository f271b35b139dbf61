package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/corray333/backend-labs/registration/pkg/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "REGGW"

func MustInit() {
	if err := godotenv.Load("./.env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("error while loading .env file: " + err.Error())
	}

	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/registration-gateway")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(replacer())
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic("error while reading config file: " + err.Error())
		}
		SetupLogger()
		slog.Warn("Config file not found, running on defaults and environment")

		return
	}
	SetupLogger()
}

func replacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

func SetupLogger() {
	handler := logger.NewHandler(nil)
	log := slog.New(handler)
	slog.SetDefault(log)
}

// Watch calls onChange after every successful reload of the config file.
func Watch(onChange func()) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("Config file changed", "file", e.Name, "op", e.Op.String())
		SetupLogger()
		onChange()
	})
	viper.WatchConfig()
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("server.http.port", "8080")
	viper.SetDefault("server.http.shutdown_timeout_seconds", 10)
	viper.SetDefault("server.http.cors.allowed_origins", []string{"*"})
	viper.SetDefault("server.http.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	viper.SetDefault("server.http.cors.allowed_headers", []string{"Accept", "Content-Type", "X-Request-Id"})
	viper.SetDefault("server.http.cors.max_age", 300)

	viper.SetDefault("upstream.base_url", "http://localhost:8081")
	viper.SetDefault("upstream.transport", "rest")

	viper.SetDefault("executor.timeout_ms", 10000)
	viper.SetDefault("executor.max_attempts", 3)
	viper.SetDefault("executor.backoff.strategy", "none")
	viper.SetDefault("executor.backoff.base_ms", 100)

	viper.SetDefault("breaker.enabled", false)

	viper.SetDefault("soap.namespace", "http://ws.persons.example.org/")
	viper.SetDefault("soap.action_register", "RegisterPerson")
	viper.SetDefault("soap.action_list", "GetDatos")

	viper.SetDefault("connectivity.probe_enabled", true)
	viper.SetDefault("connectivity.probe_path", "/")
	viper.SetDefault("connectivity.poll_interval_seconds", 5)
	viper.SetDefault("connectivity.probe_timeout_ms", 2000)

	viper.SetDefault("replay.safety_interval_seconds", 30)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.key", "registration:users")
	viper.SetDefault("redis.ttl_seconds", 0)

	viper.SetDefault("postgres.enabled", false)
	viper.SetDefault("postgres.migrations_path", "migrations")

	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.queue", "person.registered")

	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.endpoint", "http://jaeger:14268/api/traces")
	viper.SetDefault("tracing.service_name", "registration-gateway")
}
