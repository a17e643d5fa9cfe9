package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultLogLevel      = "info"
	defaultEnv           = EnvLocal
	defaultConfigDir     = ".stockaudit"
	defaultDBFile        = "stockaudit.db"

	defaultSyncInterval    = 30
	defaultHTTPTimeout     = 15
	defaultRecordTTLDays   = 7
	defaultBarcodePageSize = 500
	defaultDeltaMaxAgeDays = 3
	defaultMaxAttempts     = 5
)

type Config struct {
	Env           string `mapstructure:"app_env"`
	ServerAddress string `mapstructure:"server_address"`
	LogLevel      string `mapstructure:"log_level"`
	ConfigDir     string `mapstructure:"config_dir"`
	TokenPath     string `mapstructure:"token_path"`
	DBPath        string `mapstructure:"db_path"`
	StatePath     string `mapstructure:"state_path"`

	SyncInterval    int    `mapstructure:"sync_interval_seconds"`
	HTTPTimeout     int    `mapstructure:"http_timeout_seconds"`
	RecordTTLDays   int    `mapstructure:"record_ttl_days"`
	BarcodePageSize int    `mapstructure:"barcode_page_size"`
	DeltaMaxAgeDays int    `mapstructure:"delta_max_age_days"`
	MaxSyncAttempts int    `mapstructure:"max_sync_attempts"`
	EnableTLS       bool   `mapstructure:"enable_tls"`
	CACertPath      string `mapstructure:"ca_cert_path"`
}

// MustLoad загружает конфигурацию клиента
func MustLoad() *Config {
	// Определяем путь к .env файлу (относительно места запуска)
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		// Пробуем найти .env в родительской директории
		envPath = "../.env"
	}

	// Загружаем .env файл если существует
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("Ошибка загрузки .env файла: %v\n", err)
		}
	}

	viper.AutomaticEnv()

	// Устанавливаем значения по умолчанию
	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("CONFIG_DIR", defaultConfigDir)
	viper.SetDefault("SYNC_INTERVAL_SECONDS", defaultSyncInterval)
	viper.SetDefault("HTTP_TIMEOUT_SECONDS", defaultHTTPTimeout)
	viper.SetDefault("RECORD_TTL_DAYS", defaultRecordTTLDays)
	viper.SetDefault("BARCODE_PAGE_SIZE", defaultBarcodePageSize)
	viper.SetDefault("DELTA_MAX_AGE_DAYS", defaultDeltaMaxAgeDays)
	viper.SetDefault("MAX_SYNC_ATTEMPTS", defaultMaxAttempts)
	viper.SetDefault("ENABLE_TLS", false)

	// Получаем домашнюю директорию пользователя
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	// Вычисляем пути для хранения данных
	configDir := viper.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}

	// Создаем директории если их нет
	if err := os.MkdirAll(configDir, 0700); err != nil {
		fmt.Printf("Ошибка создания директории конфигурации: %v\n", err)
	}

	dbPath := viper.GetString("DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(configDir, defaultDBFile)
	}

	tokenPath := filepath.Join(configDir, "token")
	statePath := filepath.Join(configDir, "state.json")

	config := &Config{
		Env:             viper.GetString("APP_ENV"),
		ServerAddress:   viper.GetString("SERVER_ADDRESS"),
		LogLevel:        viper.GetString("LOG_LEVEL"),
		ConfigDir:       configDir,
		TokenPath:       tokenPath,
		DBPath:          dbPath,
		StatePath:       statePath,
		SyncInterval:    viper.GetInt("SYNC_INTERVAL_SECONDS"),
		HTTPTimeout:     viper.GetInt("HTTP_TIMEOUT_SECONDS"),
		RecordTTLDays:   viper.GetInt("RECORD_TTL_DAYS"),
		BarcodePageSize: viper.GetInt("BARCODE_PAGE_SIZE"),
		DeltaMaxAgeDays: viper.GetInt("DELTA_MAX_AGE_DAYS"),
		MaxSyncAttempts: viper.GetInt("MAX_SYNC_ATTEMPTS"),
		EnableTLS:       viper.GetBool("ENABLE_TLS"),
		CACertPath:      viper.GetString("CA_CERT_PATH"),
	}

	// Валидация конфигурации
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}

	return config
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address не может быть пустым")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync_interval_seconds должен быть положительным")
	}
	if c.RecordTTLDays <= 0 {
		return fmt.Errorf("record_ttl_days должен быть положительным")
	}
	if c.BarcodePageSize <= 0 {
		return fmt.Errorf("barcode_page_size должен быть положительным")
	}
	return nil
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsDev проверяет, dev ли окружение
func (c *Config) IsDev() bool {
	return c.Env == EnvDev
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}
