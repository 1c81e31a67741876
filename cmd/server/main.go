package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"bookrag/api"
	"bookrag/internal/account"
	"bookrag/internal/auth"
	"bookrag/internal/config"
	"bookrag/internal/infra"
	"bookrag/internal/library"
	"bookrag/internal/logger"
	"bookrag/internal/rag"
	"bookrag/internal/rag/parsers"
	"bookrag/internal/security"
	"bookrag/internal/storage"
)

func main() {
	// 0. 统一加载 .env，便于集中管理 APP_* 环境变量
	loadEnvFile()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	// 1. 加载配置
	cfg, err := config.Load(env, "")
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.String("env", env),
		zap.String("mode", cfg.Server.Mode),
	)

	// 3. 初始化数据库
	db, err := infra.InitDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer infra.CloseDatabase()

	// 4. 执行数据库迁移（根据配置）
	if cfg.Database.AutoMigrate {
		if err := runMigrations(db); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
	} else {
		logger.Info("跳过自动迁移（配置已禁用）")
	}

	// 5. 组装业务服务
	svcs, err := buildServices(cfg, db)
	if err != nil {
		logger.Fatal("初始化业务服务失败", zap.Error(err))
	}

	// 6. 创建路由与 HTTP 服务器
	router := api.SetupRouter(cfg, svcs)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// 7. 启动服务器（goroutine）
	go func() {
		logger.Info("HTTP 服务器启动",
			zap.Int("port", cfg.Server.Port),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器启动失败", zap.Error(err))
		}
	}()

	// 8. 优雅关闭
	gracefulShutdown(server)
}

// buildServices 根据配置组装全部业务服务
func buildServices(cfg *config.Config, db *gorm.DB) (*api.Services, error) {
	key, err := cfg.Security.DecodeFileEncryptionKey()
	if err != nil {
		return nil, err
	}
	cipher, err := security.NewCipher(key)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.Storage.BasePath)
	if err != nil {
		return nil, err
	}

	embedder := rag.NewOpenAIEmbeddingProvider(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.EmbeddingModel)
	gateway := rag.NewOpenAIGateway(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.ChatModel, cfg.AI.MaxRetries)

	ragService := rag.NewService(
		parsers.NewParserRegistry(),
		rag.NewChunker(cfg.RAG.ChunkSize),
		embedder,
		gateway,
		cipher,
		store,
		cfg.RAG.TopK,
	)

	jwtService := auth.NewJWTService(cfg.Security.JWTSecret, cfg.Security.JWTIssuer)

	return &api.Services{
		DB:       db,
		Accounts: account.NewService(db, jwtService),
		Catalog:  library.NewCatalog(db, ragService),
		JWT:      jwtService,
	}, nil
}

// runMigrations 执行数据库迁移
func runMigrations(db *gorm.DB) error {
	logger.Info("执行核心表自动迁移...")

	if err := db.AutoMigrate(
		&account.User{},
		&library.Book{},
	); err != nil {
		return fmt.Errorf("迁移核心表失败: %w", err)
	}

	logger.Info("核心表迁移完成")
	return nil
}

// gracefulShutdown 优雅关闭 HTTP 服务器
func gracefulShutdown(server *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("收到退出信号，开始优雅关闭...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP 服务器关闭失败", zap.Error(err))
	}

	logger.Info("应用已退出")
}

// loadEnvFile 依次尝试加载当前目录及上级目录的 .env 文件
func loadEnvFile() {
	if path := resolveEnvPath(); path != "" {
		if err := godotenv.Load(path); err != nil {
			fmt.Printf("加载环境变量文件 %s 失败: %v\n", path, err)
		} else {
			fmt.Printf("已加载环境变量文件: %s\n", path)
		}
	} else {
		fmt.Println("未找到 .env 文件，将仅使用系统环境变量和 config/* 配置")
	}
}

// resolveEnvPath 尝试从当前工作目录、可执行文件目录向上查找根目录 .env
func resolveEnvPath() string {
	for _, path := range collectEnvCandidates() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func collectEnvCandidates() []string {
	seen := make(map[string]struct{})
	var candidates []string
	add := func(path string) {
		if path == "" {
			return
		}
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		candidates = append(candidates, path)
	}

	traverse := func(start string) {
		dir := filepath.Clean(start)
		for i := 0; i < 8; i++ {
			if dir == "" || dir == string(filepath.Separator) || dir == "." {
				break
			}
			add(filepath.Join(dir, ".env"))
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if wd, err := os.Getwd(); err == nil {
		traverse(wd)
	}
	if exe, err := os.Executable(); err == nil {
		traverse(filepath.Dir(exe))
	}

	return candidates
}
