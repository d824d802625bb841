// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	Auth                    `yaml:"auth"`
	PaymentProvider         `yaml:"payment_provider"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
	Subscription            `yaml:"subscription"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"30s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// Auth настройки проверки токенов провайдера аутентификации.
type Auth struct {
	JWTSecretKey string `yaml:"jwt_secret_key" env:"AUTH_JWT_SECRET"`
	Issuer       string `yaml:"issuer"`
	Audience     string `yaml:"audience"`
}

// PaymentProvider настройки клиента платёжного провайдера.
type PaymentProvider struct {
	ProviderName   string        `yaml:"provider_name" env-default:"abacatepay"`
	APIURL         string        `yaml:"api_url" env-default:"https://api.abacatepay.com/v1"`
	APIKey         string        `yaml:"api_key" env:"ABACATEPAY_API_KEY"`
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"15s"`
	WebhookSecret  string        `yaml:"webhook_secret" env:"ABACATEPAY_WEBHOOK_SECRET"`
}

// RabbitMQ настройки брокера уведомлений.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// SMTP настройки почтового сервера для воркера уведомлений.
type SMTP struct {
	SMTPHost string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"password" env:"SMTP_PASSWORD"`
}

// Subscription настройки жизненного цикла подписок.
type Subscription struct {
	Term          time.Duration `yaml:"term" env-default:"8760h"`
	CacheTTL      time.Duration `yaml:"cache_ttl" env-default:"5m"`
	FreeCardLimit int           `yaml:"free_card_limit" env-default:"1"`
	VerifyRPS     float64       `yaml:"verify_rps" env-default:"0.5"`
	VerifyBurst   int           `yaml:"verify_burst" env-default:"3"`
}

// MustLoad функция для загрузки конфига, путь к файлу берётся из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
