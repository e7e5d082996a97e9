package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env-default:"local"`
	AdminID    int64  `yaml:"admin_id" env-required:"true"`
	JWTSecret  string `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	Resources  `yaml:"resources"`
	Fetcher    `yaml:"fetcher"`
	Scheduler  `yaml:"scheduler"`
	HTTPServer `yaml:"http_server"`
	Redis      `yaml:"redis"`
	Postgres   `yaml:"postgres"`
	RabbitMQ   `yaml:"rabbitmq"`
	SMTP       `yaml:"smtp"`
}

type Resources struct {
	DatabasePath  string `yaml:"database_path" env-default:"./resources/database.json"`
	AuthUsersPath string `yaml:"auth_users_path" env-default:"./resources/authorized_users.csv"`
}

type Fetcher struct {
	MaxRetries int           `yaml:"max_retries" env-default:"20"`
	Timeout    time.Duration `yaml:"timeout" env-default:"10s"`
}

type Scheduler struct {
	DailyAt string `yaml:"daily_at" env-default:"14:00"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Redis struct {
	Enabled    bool          `yaml:"enabled" env-default:"false"`
	Addr       string        `yaml:"addr" env-default:"redis:6379"`
	Db         int           `yaml:"db" env-default:"1"`
	DefaultTTL time.Duration `yaml:"default_ttl" env-default:"1m"`
}

type Postgres struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:"postgres"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-default:"postgres"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	DBName   string `yaml:"dbname" env-default:"pricehistory"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type RabbitMQ struct {
	URL            string `yaml:"url" env-required:"true"`
	QueueName      string `yaml:"queue_name" env-default:"digest_queue"`
	WorkerPoolSize int    `yaml:"worker_pool_size" env-default:"10"`
}

type SMTP struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"587"`
	User     string `yaml:"user"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env-default:"bot@localhost"`
	To       string `yaml:"to" env-required:"true"`
}

func MustLoad(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", configPath)
	}

	return &cfg
}
