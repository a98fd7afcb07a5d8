package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string `yaml:"listenAddr"`
	RedisAddr  string `yaml:"redisAddr"`
	RedisDB    int    `yaml:"redisDB"`
	RedisPass  string `yaml:"redisPass"`
	MySQLDSN   string `yaml:"mysqlDSN"`
	MongoURI   string `yaml:"mongoURI"`

	// 会话
	JWTSecret  string        `yaml:"jwtSecret"`
	SessionTTL time.Duration `yaml:"sessionTTL"`

	// 文档库选择：mongodb 或 memory（memory 仅用于本地演示）
	DocumentStore string `yaml:"documentStore"`
	// 待发送队列：mongodb、pebble（本地持久 outbox）或 memory
	PendingStore string `yaml:"pendingStore"`
	OutboxDir    string `yaml:"outboxDir"`

	// Kafka 配置（可选，未配置时直接写 Redis 未读计数）
	KafkaBrokers       string `yaml:"kafkaBrokers"` // 逗号分隔
	KafkaCommitTopic   string `yaml:"kafkaCommitTopic"`
	KafkaConsumerGroup string `yaml:"kafkaConsumerGroup"`

	// 速率限制（入队）
	SendQPS   int `yaml:"sendQPS"`
	SendBurst int `yaml:"sendBurst"`

	// 指标开关
	EnableMetrics bool `yaml:"enableMetrics"`

	// 日志
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"` // json | console

	// 媒体（本地对象存储）
	MediaDir       string `yaml:"mediaDir"`
	MediaBaseURL   string `yaml:"mediaBaseURL"`
	MediaMaxSizeMB int    `yaml:"mediaMaxSizeMB"`

	// 业务参数
	EditWindow time.Duration `yaml:"editWindow"`
	TypingTTL  time.Duration `yaml:"typingTTL"`
}

func Defaults() *Config {
	return &Config{
		ListenAddr: ":8080",
		RedisAddr:  "127.0.0.1:6379",
		MySQLDSN:   "root:password@tcp(127.0.0.1:3306)/comu?parseTime=true&loc=Local&charset=utf8mb4",
		MongoURI:   "mongodb://127.0.0.1:27017/comu",

		JWTSecret:  "change-me-in-prod",
		SessionTTL: 7 * 24 * time.Hour,

		DocumentStore: "mongodb",
		PendingStore:  "mongodb",
		OutboxDir:     "./data/outbox",

		KafkaBrokers:       "",
		KafkaCommitTopic:   "comu-message-committed",
		KafkaConsumerGroup: "comu-commit-consumer",

		SendQPS:       20,
		SendBurst:     40,
		EnableMetrics: true,

		LogLevel:  "info",
		LogFormat: "json",

		MediaDir:       "./uploads",
		MediaBaseURL:   "http://localhost:8080/media",
		MediaMaxSizeMB: 50,

		EditWindow: 3 * time.Minute,
		TypingTTL:  3 * time.Second,
	}
}

// Load 默认值 -> YAML 文件 -> 环境变量
func Load() *Config {
	return LoadFile(getEnv("COMU_CONFIG_FILE", getEnv("CONFIG_FILE", "config.yml")))
}

// LoadFile 与 Load 相同，但显式指定 YAML 路径
func LoadFile(configPath string) *Config {
	cfg := Defaults()

	if st, err := os.Stat(configPath); err == nil && !st.IsDir() {
		if data, err2 := os.ReadFile(configPath); err2 == nil {
			_ = yaml.Unmarshal(data, cfg)
		}
	}

	applyEnv(cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	setStr := func(env string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	setInt := func(env string, dst *int) {
		if v := os.Getenv(env); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(env string, dst *bool) {
		if v := os.Getenv(env); v != "" {
			*dst = (v == "true" || v == "1" || v == "yes")
		}
	}
	setDur := func(env string, dst *time.Duration) {
		if v := os.Getenv(env); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	setStr("COMU_LISTEN_ADDR", &cfg.ListenAddr)
	setStr("COMU_REDIS_ADDR", &cfg.RedisAddr)
	setStr("COMU_REDIS_PASS", &cfg.RedisPass)
	setInt("COMU_REDIS_DB", &cfg.RedisDB)
	setStr("COMU_MYSQL_DSN", &cfg.MySQLDSN)
	setStr("COMU_MONGO_URI", &cfg.MongoURI)

	setStr("COMU_JWT_SECRET", &cfg.JWTSecret)
	setDur("COMU_SESSION_TTL", &cfg.SessionTTL)

	setStr("COMU_DOCUMENT_STORE", &cfg.DocumentStore)
	setStr("COMU_PENDING_STORE", &cfg.PendingStore)
	setStr("COMU_OUTBOX_DIR", &cfg.OutboxDir)

	setStr("COMU_KAFKA_BROKERS", &cfg.KafkaBrokers)
	setStr("COMU_KAFKA_COMMIT_TOPIC", &cfg.KafkaCommitTopic)
	setStr("COMU_KAFKA_CONSUMER_GROUP", &cfg.KafkaConsumerGroup)

	setInt("COMU_SEND_QPS", &cfg.SendQPS)
	setInt("COMU_SEND_BURST", &cfg.SendBurst)
	setBool("COMU_ENABLE_METRICS", &cfg.EnableMetrics)

	setStr("COMU_LOG_LEVEL", &cfg.LogLevel)
	setStr("COMU_LOG_FORMAT", &cfg.LogFormat)

	setStr("COMU_MEDIA_DIR", &cfg.MediaDir)
	setStr("COMU_MEDIA_BASE_URL", &cfg.MediaBaseURL)
	setInt("COMU_MEDIA_MAX_SIZE_MB", &cfg.MediaMaxSizeMB)

	setDur("COMU_EDIT_WINDOW", &cfg.EditWindow)
	setDur("COMU_TYPING_TTL", &cfg.TypingTTL)
}

// Brokers 解析 Kafka broker 列表
func (c *Config) Brokers() []string {
	return SplitCSV(c.KafkaBrokers)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// SplitCSV 逗号分隔列表，去空白与空项
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
