package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Port        string   `env:"PORT" envDefault:"8080"`
	GinMode     string   `env:"GIN_MODE" envDefault:"debug"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	ClientURL   string   `env:"CLIENT_URL" envDefault:"http://localhost:5173"`
	JWTSecret   string   `env:"JWT_SECRET,required,notEmpty"`

	Scylla ScyllaConfig
	Redis  RedisConfig
	Kafka  KafkaConfig
	SMTP   SMTPConfig

	PaymentProvider string `env:"PAYMENT_PROVIDER" envDefault:"payos"`
	PayOS           PayOSConfig
	Stripe          StripeConfig
	Credits         CreditsConfig
}

type ScyllaConfig struct {
	Hosts          []string      `env:"SCYLLA_HOSTS" envSeparator:"," envDefault:"127.0.0.1"`
	SSLEnabled     bool          `env:"SCYLLA_SSL_ENABLED"`
	CACertPath     string        `env:"SCYLLA_SSL_CA_PATH"`
	Timeout        time.Duration `env:"SCYLLA_TIMEOUT" envDefault:"5s"`
	NumConns       int           `env:"SCYLLA_NUM_CONNS" envDefault:"20"`
	UsersKeyspace  string        `env:"SCYLLA_KS_USERS_KEYSPACE" envDefault:"ks_users"`
	UsersRole      string        `env:"SCYLLA_KS_USERS_ROLE"`
	UsersPassword  string        `env:"SCYLLA_KS_USERS_PASSWORD"`
	OrdersKeyspace string        `env:"SCYLLA_KS_ORDERS_KEYSPACE" envDefault:"ks_orders"`
	OrdersRole     string        `env:"SCYLLA_KS_ORDERS_ROLE"`
	OrdersPassword string        `env:"SCYLLA_KS_ORDERS_PASSWORD"`
}

type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_CREDITS_TOPIC" envDefault:"credits.applied"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"MAIL_FROM" envDefault:"noreply@nhadat.vn"`
}

type PayOSConfig struct {
	ClientID    string        `env:"PAYOS_CLIENT_ID"`
	APIKey      string        `env:"PAYOS_API_KEY"`
	ChecksumKey string        `env:"PAYOS_CHECKSUM_KEY"`
	BaseURL     string        `env:"PAYOS_BASE_URL" envDefault:"https://api-merchant.payos.vn"`
	Timeout     time.Duration `env:"PAYOS_TIMEOUT" envDefault:"10s"`
	ReturnURL   string        `env:"PAYOS_RETURN_URL"`
	CancelURL   string        `env:"PAYOS_CANCEL_URL"`
	LinkTTL     time.Duration `env:"PAYOS_LINK_TTL" envDefault:"15m"`
}

type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
}

type CreditsConfig struct {
	MinPayableAmount int64         `env:"CREDITS_MIN_PAYABLE" envDefault:"1000"`
	MaxQuantity      int           `env:"CREDITS_MAX_QUANTITY" envDefault:"100"`
	Description      string        `env:"CREDITS_PAYMENT_DESCRIPTION" envDefault:"Mua goi tin"`
	LockTTL          time.Duration `env:"CREDITS_RECONCILE_LOCK_TTL" envDefault:"15s"`
}

// Load charge .env s'il existe puis lit la configuration typée
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Warn("⚠️  Aucun fichier .env trouvé — on continue avec les variables d'environnement du système")
	} else {
		log.Info("✅ Fichier .env chargé avec succès")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults dérive les URLs de retour payOS de CLIENT_URL
func (c *Config) applyDefaults() {
	if c.PayOS.ReturnURL == "" {
		c.PayOS.ReturnURL = c.ClientURL + "/payment/success"
	}
	if c.PayOS.CancelURL == "" {
		c.PayOS.CancelURL = c.ClientURL + "/payment/cancel"
	}
}
