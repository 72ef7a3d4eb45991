package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"

	xerrors "Lotus-Dashboard/internal/errors"
)

// Config 描述 ETL 作业启动时需要加载的全部配置。
// 顶层的 MYSQL_* 字段是本地报表库（写入端），DASHBOARD_DB 是业务源库（读取端）。
type Config struct {
	DatabaseConfig `yaml:",inline"`

	DashboardDB DatabaseConfig  `json:"DASHBOARD_DB" yaml:"DASHBOARD_DB"`
	Scheduler   SchedulerConfig `json:"SCHEDULER" yaml:"SCHEDULER"`
	Log         LogConfig       `json:"LOG" yaml:"LOG"`
	Metrics     MetricsConfig   `json:"METRICS" yaml:"METRICS"`
	Lock        LockConfig      `json:"LOCK" yaml:"LOCK"`
	Notify      NotifyConfig    `json:"NOTIFY" yaml:"NOTIFY"`
}

// DatabaseConfig 对应一个 MySQL 连接。
type DatabaseConfig struct {
	Host     string `json:"MYSQL_HOST" yaml:"MYSQL_HOST"`
	Port     Port   `json:"MYSQL_PORT" yaml:"MYSQL_PORT"`
	User     string `json:"MYSQL_USER" yaml:"MYSQL_USER"`
	Password string `json:"MYSQL_PASSWORD" yaml:"MYSQL_PASSWORD"`
	DB       string `json:"MYSQL_DB" yaml:"MYSQL_DB"`
	Params   string `json:"MYSQL_PARAMS" yaml:"MYSQL_PARAMS"`

	MaxOpenConns           int `json:"MAX_OPEN_CONNS" yaml:"MAX_OPEN_CONNS"`
	MaxIdleConns           int `json:"MAX_IDLE_CONNS" yaml:"MAX_IDLE_CONNS"`
	ConnMaxLifetimeSeconds int `json:"CONN_MAX_LIFETIME_SECONDS" yaml:"CONN_MAX_LIFETIME_SECONDS"`
}

// SchedulerConfig 控制轮询周期与写入批大小。
type SchedulerConfig struct {
	IntervalSeconds int `json:"INTERVAL_SECONDS" yaml:"INTERVAL_SECONDS"`
	BatchSize       int `json:"BATCH_SIZE" yaml:"BATCH_SIZE"`
}

// LogConfig 对应 pkg/logger 的配置。
type LogConfig struct {
	Level   string        `json:"LEVEL" yaml:"LEVEL"`
	Format  string        `json:"FORMAT" yaml:"FORMAT"`
	Outputs []string      `json:"OUTPUTS" yaml:"OUTPUTS"`
	File    LogFileConfig `json:"FILE" yaml:"FILE"`
}

// LogFileConfig 描述按大小滚动的日志文件。
type LogFileConfig struct {
	Path       string `json:"PATH" yaml:"PATH"`
	MaxSizeMB  int    `json:"MAX_SIZE_MB" yaml:"MAX_SIZE_MB"`
	MaxBackups int    `json:"MAX_BACKUPS" yaml:"MAX_BACKUPS"`
	MaxAgeDays int    `json:"MAX_AGE_DAYS" yaml:"MAX_AGE_DAYS"`
}

// MetricsConfig 为空地址时不启动 /metrics。
type MetricsConfig struct {
	Address string `json:"ADDRESS" yaml:"ADDRESS"`
}

// LockConfig 配置基于 Redis 的周期租约，为空地址时不加锁。
type LockConfig struct {
	RedisAddress  string `json:"REDIS_ADDRESS" yaml:"REDIS_ADDRESS"`
	RedisPassword string `json:"REDIS_PASSWORD" yaml:"REDIS_PASSWORD"`
	RedisDB       int    `json:"REDIS_DB" yaml:"REDIS_DB"`
	Key           string `json:"KEY" yaml:"KEY"`
	TTLSeconds    int    `json:"TTL_SECONDS" yaml:"TTL_SECONDS"`
}

// NotifyConfig 配置刷新完成后的 RabbitMQ 通知，为空 URL 时不发送。
type NotifyConfig struct {
	URL        string `json:"URL" yaml:"URL"`
	Exchange   string `json:"EXCHANGE" yaml:"EXCHANGE"`
	RoutingKey string `json:"ROUTING_KEY" yaml:"ROUTING_KEY"`
}

// Port 兼容 JSON/YAML 中以数字或字符串书写的端口。
type Port string

// UnmarshalJSON 接受 3306 与 "3306" 两种写法。
func (p *Port) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*p = ""
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	*p = Port(strings.TrimSpace(raw))
	return nil
}

// UnmarshalYAML 接受任意标量。
func (p *Port) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("MYSQL_PORT 必须是标量")
	}
	*p = Port(strings.TrimSpace(node.Value))
	return nil
}

const (
	defaultPort            = "3306"
	defaultIntervalSeconds = 60
	defaultBatchSize       = 500
	defaultLockKey         = "lotus:dashboard:cron"
	defaultLockTTLSeconds  = 300
	defaultNotifyExchange  = "lotus.dashboard"
	defaultNotifyRouting   = "report.refreshed"
)

// Load 负责解析指定路径的配置文件，.yaml/.yml 按 YAML 解析，其余按 JSON。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &cfg)
	default:
		err = json.Unmarshal(content, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置默认值。
func (c *Config) applyDefaults() {
	if c.Scheduler.IntervalSeconds <= 0 {
		c.Scheduler.IntervalSeconds = defaultIntervalSeconds
	}
	if c.Scheduler.BatchSize <= 0 {
		c.Scheduler.BatchSize = defaultBatchSize
	}
	if c.Lock.Key == "" {
		c.Lock.Key = defaultLockKey
	}
	if c.Lock.TTLSeconds <= 0 {
		c.Lock.TTLSeconds = defaultLockTTLSeconds
	}
	if c.Notify.Exchange == "" {
		c.Notify.Exchange = defaultNotifyExchange
	}
	if c.Notify.RoutingKey == "" {
		c.Notify.RoutingKey = defaultNotifyRouting
	}
}

// Validate 检查两端数据库的必填项。
func (c *Config) Validate() error {
	if err := c.DatabaseConfig.validate("MYSQL"); err != nil {
		return err
	}
	return c.DashboardDB.validate("DASHBOARD_DB")
}

func (d DatabaseConfig) validate(section string) error {
	var missing []string
	if strings.TrimSpace(d.Host) == "" {
		missing = append(missing, "MYSQL_HOST")
	}
	if strings.TrimSpace(d.User) == "" {
		missing = append(missing, "MYSQL_USER")
	}
	if strings.TrimSpace(d.DB) == "" {
		missing = append(missing, "MYSQL_DB")
	}
	if len(missing) > 0 {
		return xerrors.New(xerrors.CodeConfigInvalid,
			fmt.Sprintf("%s 缺少必填项: %s", section, strings.Join(missing, ", ")))
	}
	if d.Params != "" && !strings.HasPrefix(d.Params, "?") {
		return xerrors.New(xerrors.CodeConfigInvalid, fmt.Sprintf("%s.MYSQL_PARAMS 必须以 ? 开头", section))
	}
	return nil
}

// Interval 返回两次周期之间的等待时间。
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Scheduler.IntervalSeconds) * time.Second
}

// Address 返回 host:port。主机名里已带端口时原样使用。
func (d DatabaseConfig) Address() string {
	host := strings.TrimSpace(d.Host)
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	port := strings.TrimSpace(string(d.Port))
	if port == "" {
		port = defaultPort
	}
	return net.JoinHostPort(host, port)
}

// DSN 生成 go-sql-driver/mysql 的连接串，并始终开启 parseTime。
func (d DatabaseConfig) DSN() (string, error) {
	parsed, err := mysql.ParseDSN("/" + d.Params)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeConfigInvalid, err, "MYSQL_PARAMS 无效")
	}
	parsed.User = d.User
	parsed.Passwd = d.Password
	parsed.Net = "tcp"
	parsed.Addr = d.Address()
	parsed.DBName = d.DB
	parsed.ParseTime = true
	return parsed.FormatDSN(), nil
}

// ConnMaxLifetime 返回连接最长存活时间，未配置时为 0。
func (d DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(d.ConnMaxLifetimeSeconds) * time.Second
}
