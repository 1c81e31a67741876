package config

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	AI       AIConfig       `mapstructure:"ai"`
	RAG      RagConfig      `mapstructure:"rag"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Security SecurityConfig `mapstructure:"security"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	MaxUploadMB  int64  `mapstructure:"max_upload_mb"` // 上传文件大小限制（MB），默认 50
}

// DatabaseConfig 数据库配置
// driver 为 sqlite 时仅使用 path；为 postgres 时使用其余字段
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // sqlite, postgres
	Path            string `mapstructure:"path"`   // sqlite 数据库文件路径
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
	AutoMigrate     bool   `mapstructure:"auto_migrate"`      // 是否自动迁移表结构
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, /path/to/log
}

// AIConfig AI 模型配置
type AIConfig struct {
	APIKey         string `mapstructure:"api_key"`         // OpenAI 兼容接口密钥
	BaseURL        string `mapstructure:"base_url"`        // 留空使用官方地址，可指向 OpenRouter
	ChatModel      string `mapstructure:"chat_model"`      // 问答模型
	EmbeddingModel string `mapstructure:"embedding_model"` // 向量化模型
	MaxRetries     int    `mapstructure:"max_retries"`
}

// RagConfig 检索增强相关配置
type RagConfig struct {
	ChunkSize int `mapstructure:"chunk_size"` // 分块字符数，默认 500
	TopK      int `mapstructure:"top_k"`      // 检索返回的分块数量，默认 10
}

// StorageConfig 制品存储配置
// 四类制品分目录存放：加密原文件、封面图、加密元数据分块、向量索引
type StorageConfig struct {
	BasePath string `mapstructure:"base_path"` // 存储根目录，默认 ./uploads
}

// SecurityConfig 安全相关配置
type SecurityConfig struct {
	FileEncryptionKey string `mapstructure:"file_encryption_key"` // base64 编码的 32 字节密钥
	JWTSecret         string `mapstructure:"jwt_secret"`
	JWTIssuer         string `mapstructure:"jwt_issuer"`
}

var globalConfig *Config

// Load 加载配置
// env: 环境名称（dev, prod, test）
// configPath: 配置文件路径（可选）
func Load(env string, configPath string) (*Config, error) {
	v := viper.New()

	// 设置配置文件名和路径
	if configPath == "" {
		v.SetConfigName(env) // dev.yaml, prod.yaml
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("../../config")
	} else {
		v.SetConfigFile(configPath)
	}

	v.SetConfigType("yaml")

	// 读取环境变量（优先级高于配置文件）
	v.SetEnvPrefix("APP") // 环境变量前缀：APP_
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 支持嵌套配置：APP_SECURITY_FILE_ENCRYPTION_KEY

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyDefaults(&cfg)

	globalConfig = &cfg
	return &cfg, nil
}

// applyDefaults 填充缺省值
func applyDefaults(cfg *Config) {
	if cfg.Server.MaxUploadMB <= 0 {
		cfg.Server.MaxUploadMB = 50
	}
	if cfg.RAG.ChunkSize <= 0 {
		cfg.RAG.ChunkSize = 500
	}
	if cfg.RAG.TopK <= 0 {
		cfg.RAG.TopK = 10
	}
	if cfg.Storage.BasePath == "" {
		cfg.Storage.BasePath = "./uploads"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./bookrag.db"
	}
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("配置未初始化，请先调用 Load()")
	}
	return globalConfig
}

// GetDSN 获取 Postgres 连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// DecodeFileEncryptionKey 解码文件加密密钥
// 密钥为 base64 编码的 32 字节，进程启动时解码一次
func (c *SecurityConfig) DecodeFileEncryptionKey() ([]byte, error) {
	if strings.TrimSpace(c.FileEncryptionKey) == "" {
		return nil, fmt.Errorf("未配置文件加密密钥 security.file_encryption_key")
	}
	key, err := base64.StdEncoding.DecodeString(c.FileEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("解码文件加密密钥失败: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("文件加密密钥长度必须为 32 字节，实际 %d 字节", len(key))
	}
	return key, nil
}
