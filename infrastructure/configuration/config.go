package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"downloader/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	Database    Database    `json:"database"`
	App         App         `json:"app"`
	Downloader  Downloader  `json:"downloader"`
	Queue       Queue       `json:"queue"`
	Sweeper     Sweeper     `json:"sweeper"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	RedisClient RedisClient `json:"redisClient"`
	Logger      Logger      `json:"logger"`
	OAuth       OAuth       `json:"oauth"`
}

type App struct {
	Port           int      `json:"port"`
	SecretKey      string   `json:"secretKey"`
	TokenTTLHours  int      `json:"tokenTTLHours"`
	TLSEnabled     bool     `json:"tlsEnabled"`
	TLSCertFile    string   `json:"tlsCertFile"`
	TLSKeyFile     string   `json:"tlsKeyFile"`
	AllowedOrigins []string `json:"allowedOrigins"`
}

type Database struct {
	Vendor string `json:"vendor"` // mongo | postgres | mssql
	Psql   Db     `json:"psql"`
	Mongo  Db     `json:"mongo"`
	Mssql  Db     `json:"mssql"`
}

type Db struct {
	URI      string `json:"uri"`
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// Downloader holds the lifecycle and extraction service settings.
type Downloader struct {
	DownloadPath             string `json:"downloadPath"`
	FileExpiryHours          int    `json:"fileExpiryHours"`
	ExtractionURL            string `json:"extractionURL"`
	ExtractionTimeoutSeconds int    `json:"extractionTimeoutSeconds"`
	ListLimit                int    `json:"listLimit"`
}

type Queue struct {
	Driver   string `json:"driver"` // memory | asynq
	Workers  int    `json:"workers"`
	Capacity int    `json:"capacity"`
}

// Sweeper holds the cron specs of the recurring cleanup jobs.
type Sweeper struct {
	ExpiryCron         string `json:"expiryCron"`
	FailedCron         string `json:"failedCron"`
	TokenRefreshCron   string `json:"tokenRefreshCron"`
	FailedGraceMinutes int    `json:"failedGraceMinutes"`
	TimeoutSeconds     int    `json:"timeoutSeconds"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

type RedisClient struct {
	Host       string `json:"host"`
	Port       string `json:"port"`
	Password   string `json:"password"`
	DB         int    `json:"db"`
	Username   string `json:"username"`
	TTLSeconds int    `json:"ttlSeconds"`
}

type Logger struct {
	Format string `json:"format"`
}

// OAuth holds third-party login client credentials
type OAuth struct {
	Google OAuthClient `json:"google"`
}

type OAuthClient struct {
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	RedirectURI  string   `json:"redirectURI"`
	Scopes       []string `json:"scopes"`
}

var C Config

func init() {
	LoadEnvFromFile("config.env", ".env")
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initDownloader(&C)
	initQueue(&C)
	initSweeper(&C)
	initRedis(&C)
	initMessaging(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	C.Database.Vendor = getConfigValue(C.Database.Vendor, "DB_VENDOR", "mongo")

	C.Database.Mongo.URI = getConfigValue(C.Database.Mongo.URI, "MONGO_URI", "")
	C.Database.Mongo.Name = getConfigValue(C.Database.Mongo.Name, "MONGO_DB_NAME", "downloader")
	C.Database.Mongo.Host = getConfigValue(C.Database.Mongo.Host, "MONGO_HOST", "localhost")
	C.Database.Mongo.Port = getConfigValue(C.Database.Mongo.Port, "MONGO_PORT", "27017")

	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = getEnv("DB_PORT", "5432")
	}

	// Optional MSSQL config via environment variables (Azure SQL in production)
	C.Database.Mssql.Name = getConfigValue(C.Database.Mssql.Name, "MSSQL_DB_NAME", "")
	C.Database.Mssql.Host = getConfigValue(C.Database.Mssql.Host, "MSSQL_HOST", "localhost")
	C.Database.Mssql.Port = getConfigValue(C.Database.Mssql.Port, "MSSQL_PORT", "1433")
	C.Database.Mssql.User = getConfigValue(C.Database.Mssql.User, "MSSQL_USER", "sa")
	C.Database.Mssql.Password = getConfigValue(C.Database.Mssql.Password, "MSSQL_PASSWORD", "")
}

func initApp(C *Config) {
	// SECRET_KEY from environment overrides the config file for JWT signing
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 3000
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 3000
	}
	if C.App.TokenTTLHours <= 0 {
		C.App.TokenTTLHours = 24
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		switch v {
		case "1", "true", "TRUE", "True":
			C.App.TLSEnabled = true
		case "0", "false", "FALSE", "False":
			C.App.TLSEnabled = false
		}
	}
	if C.App.TLSCertFile == "" {
		C.App.TLSCertFile = os.Getenv("TLS_CERT_FILE")
	}
	if C.App.TLSKeyFile == "" {
		C.App.TLSKeyFile = os.Getenv("TLS_KEY_FILE")
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		C.App.AllowedOrigins = splitList(v)
	}
	if len(C.App.AllowedOrigins) == 0 {
		C.App.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initDownloader(C *Config) {
	d := &C.Downloader
	d.DownloadPath = getConfigValue(d.DownloadPath, "DOWNLOAD_PATH", "./downloads")
	d.ExtractionURL = strings.TrimRight(getConfigValue(d.ExtractionURL, "FLASK_API_URL", "http://localhost:5001"), "/")
	d.FileExpiryHours = getConfigInt(d.FileExpiryHours, "FILE_EXPIRY_HOURS", 24)
	d.ExtractionTimeoutSeconds = getConfigInt(d.ExtractionTimeoutSeconds, "EXTRACTION_TIMEOUT_SECONDS", 600)
	d.ListLimit = getConfigInt(d.ListLimit, "DOWNLOAD_LIST_LIMIT", 50)
}

func initQueue(C *Config) {
	q := &C.Queue
	q.Driver = getConfigValue(q.Driver, "QUEUE_DRIVER", "memory")
	q.Workers = getConfigInt(q.Workers, "DOWNLOAD_WORKERS", 4)
	q.Capacity = getConfigInt(q.Capacity, "DOWNLOAD_QUEUE_CAPACITY", 100)
}

func initSweeper(C *Config) {
	s := &C.Sweeper
	s.ExpiryCron = getConfigValue(s.ExpiryCron, "SWEEP_EXPIRY_CRON", "0 * * * *")
	s.FailedCron = getConfigValue(s.FailedCron, "SWEEP_FAILED_CRON", "0 */2 * * *")
	s.TokenRefreshCron = getConfigValue(s.TokenRefreshCron, "TOKEN_REFRESH_CRON", "*/30 * * * *")
	s.FailedGraceMinutes = getConfigInt(s.FailedGraceMinutes, "FAILED_GRACE_MINUTES", 60)
	s.TimeoutSeconds = getConfigInt(s.TimeoutSeconds, "SWEEP_TIMEOUT_SECONDS", 300)
}

func initRedis(C *Config) {
	r := &C.RedisClient
	r.Host = getConfigValue(r.Host, "REDIS_HOST", "")
	r.Port = getConfigValue(r.Port, "REDIS_PORT", "6379")
	r.Username = getConfigValue(r.Username, "REDIS_USERNAME", "")
	r.Password = getConfigValue(r.Password, "REDIS_PASSWORD", "")
	r.TTLSeconds = getConfigInt(r.TTLSeconds, "REDIS_TTL_SECONDS", 30)
}

func initMessaging(C *Config) {
	C.Pubsub.ProjectID = getConfigValue(C.Pubsub.ProjectID, "PUBSUB_PROJECT_ID", "")
	C.Pubsub.Topic = getConfigValue(C.Pubsub.Topic, "PUBSUB_TOPIC", "download-events")
	C.ServiceBus.Namespace = getConfigValue(C.ServiceBus.Namespace, "SERVICEBUS_NAMESPACE", "")
	C.ServiceBus.Queue = getConfigValue(C.ServiceBus.Queue, "SERVICEBUS_QUEUE", "download-events")
}

// RedisAddr is host:port, empty when Redis is not configured.
func (r RedisClient) Addr() string {
	if r.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

func (d Downloader) Retention() time.Duration {
	return time.Duration(d.FileExpiryHours) * time.Hour
}

func (d Downloader) ExtractionTimeout() time.Duration {
	return time.Duration(d.ExtractionTimeoutSeconds) * time.Second
}

func (s Sweeper) FailedGrace() time.Duration {
	return time.Duration(s.FailedGraceMinutes) * time.Minute
}

func (s Sweeper) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
