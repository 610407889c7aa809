package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath  = ".env"
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env    string
	DB     db
	Server server
	Logger logger
	Sync   syncConfig
}

type defaultConfig struct {
	RunAddress       string
	DatabaseURI      string
	LogLevel         string
	Env              string
	Migrations       string
	OperationTimeout int
	LoyaltyEarnRate  float64
}

type db struct {
	DatabaseURI string `env:"DATABASE_URI"`
	Migrations  string `env:"MIGRATIONS_PATH"`
}

type server struct {
	RunAddress string `env:"RUN_ADDRESS"`
}

type logger struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// syncConfig — настройки движка синхронизации
type syncConfig struct {
	// OperationTimeout ограничивает выполнение одной операции пакета
	OperationTimeout time.Duration `env:"SYNC_OPERATION_TIMEOUT"`
	// LoyaltyEarnRate — баллов за единицу валюты заказа
	LoyaltyEarnRate float64 `env:"LOYALTY_EARN_RATE"`
}

func MustLoad() *Config {
	if err := godotenv.Load(envPath); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	viper.AutomaticEnv()
	d := defaultConfig{
		RunAddress:       viper.GetString("run_address"),
		DatabaseURI:      viper.GetString("database_uri"),
		LogLevel:         viper.GetString("log_level"),
		Env:              viper.GetString("app_env"),
		Migrations:       viper.GetString("migrations_path"),
		OperationTimeout: viper.GetInt("sync_operation_timeout"),
		LoyaltyEarnRate:  viper.GetFloat64("loyalty_earn_rate"),
	}
	if d.RunAddress == "" {
		d.RunAddress = ":8080"
	}
	if d.Env == "" {
		d.Env = EnvLocal
	}
	if d.Migrations == "" {
		d.Migrations = "migrations"
	}
	if d.OperationTimeout <= 0 {
		d.OperationTimeout = 15
	}
	if d.LoyaltyEarnRate <= 0 {
		d.LoyaltyEarnRate = 1
	}

	config := Config{
		Env: d.Env,
		DB: db{
			DatabaseURI: d.DatabaseURI,
			Migrations:  d.Migrations,
		},
		Server: server{RunAddress: d.RunAddress},
		Logger: logger{LogLevel: d.LogLevel},
		Sync: syncConfig{
			OperationTimeout: time.Duration(d.OperationTimeout) * time.Second,
			LoyaltyEarnRate:  d.LoyaltyEarnRate,
		},
	}

	return &config
}
