// Package config предоставляет структуры и функцию для парсинга и загрузки конфига.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек сервиса.
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	SiteURL                 string `yaml:"site_url" env:"SITE_URL"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Stripe                  `yaml:"stripe"`
	Research                `yaml:"research"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:"0.0.0.0:8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с jwt-токеном.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// Stripe содержит ключи платёжного провайдера и идентификаторы цен
// по каждой комбинации план/интервал. Отсутствие обязательного ключа не
// мешает запуску сервиса: соответствующая конечная точка вернёт ошибку
// конфигурации вместо частичной работы.
type Stripe struct {
	SecretKey              string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	WebhookSecret          string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	PriceProMonthly        string `yaml:"price_pro_monthly" env:"STRIPE_PRICE_PRO_MONTHLY"`
	PriceProYearly         string `yaml:"price_pro_yearly" env:"STRIPE_PRICE_PRO_YEARLY"`
	PriceEnterpriseMonthly string `yaml:"price_enterprise_monthly" env:"STRIPE_PRICE_ENTERPRISE_MONTHLY"`
	PriceEnterpriseYearly  string `yaml:"price_enterprise_yearly" env:"STRIPE_PRICE_ENTERPRISE_YEARLY"`
	PriceFree              string `yaml:"price_free" env:"STRIPE_PRICE_FREE"`
}

// Research содержит адрес внешнего исследовательского вебхука.
type Research struct {
	WebhookURL string        `yaml:"webhook_url" env:"RESEARCH_WEBHOOK_URL"`
	Timeout    time.Duration `yaml:"timeout" env-default:"120s"`
}

// RabbitMQ структура для настройки подключения к брокеру уведомлений.
type RabbitMQ struct {
	ConnectionString string        `yaml:"connection_string" env:"RABBITMQ_CONNECTION_STRING"`
	ConnectRetries   int           `yaml:"connect_retries" env-default:"5"`
	ConnectDelay     time.Duration `yaml:"connect_delay" env-default:"3s"`
}

// SMTP структура для настройки почтового транспорта уведомлений.
type SMTP struct {
	SMTPHost string `yaml:"smtp_host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"smtp_port" env-default:"587"`
	SMTPUser string `yaml:"smtp_user" env:"SMTP_USER"`
	SMTPPass string `yaml:"smtp_pass" env:"SMTP_PASS"`
}

// MustLoad загружает конфиг по пути из CONFIG_PATH и завершает процесс,
// если файл отсутствует или не читается.
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

// PriceID возвращает идентификатор цены для комбинации план/интервал,
// либо пустую строку, если цена не сконфигурирована.
func (s Stripe) PriceID(planID, interval string) string {
	switch {
	case planID == "pro" && interval == "monthly":
		return s.PriceProMonthly
	case planID == "pro" && interval == "yearly":
		return s.PriceProYearly
	case planID == "enterprise" && interval == "monthly":
		return s.PriceEnterpriseMonthly
	case planID == "enterprise" && interval == "yearly":
		return s.PriceEnterpriseYearly
	default:
		return ""
	}
}

// PlanByPrice возвращает план по идентификатору цены из события провайдера.
// Неизвестная цена трактуется как pro: оплаченная подписка не должна
// деградировать до free из-за незнакомого идентификатора.
func (s Stripe) PlanByPrice(priceID, metadataPlan string) string {
	if metadataPlan == "enterprise" || metadataPlan == "pro" {
		return metadataPlan
	}
	switch {
	case priceID != "" && priceID == s.PriceFree:
		return "free"
	case priceID != "" && (priceID == s.PriceEnterpriseMonthly || priceID == s.PriceEnterpriseYearly):
		return "enterprise"
	default:
		return "pro"
	}
}
