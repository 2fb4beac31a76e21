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

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/knolab/knolab/internal/cluster"
	"github.com/knolab/knolab/internal/config"
	"github.com/knolab/knolab/internal/dedup"
	"github.com/knolab/knolab/internal/handler"
	"github.com/knolab/knolab/internal/index"
	"github.com/knolab/knolab/internal/job"
	"github.com/knolab/knolab/internal/middleware"
	"github.com/knolab/knolab/internal/oracle"
	"github.com/knolab/knolab/internal/pkg/jwt"
	"github.com/knolab/knolab/internal/repo"
	"github.com/knolab/knolab/internal/schedule"
	"github.com/knolab/knolab/internal/semdict"
	"github.com/knolab/knolab/internal/service"
	"github.com/knolab/knolab/internal/snapstore"
	"github.com/knolab/knolab/internal/suggest"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "knolab",
		Short: "knolab knowledge base analysis server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run knolab server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			db, err := repo.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := repo.ApplyMigrations(db, cfg.MigrationsDir); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, db)
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	var tokenUser string
	var tokenTTLHours int
	var tokenSecret string
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "mint a bearer token for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tokenUser == "" || tokenSecret == "" {
				return fmt.Errorf("--user and --secret are required")
			}
			token, err := jwt.GenerateToken(tokenUser, []byte(tokenSecret), time.Hour*time.Duration(tokenTTLHours))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id to embed in the token")
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "jwt signing secret")
	tokenCmd.Flags().IntVar(&tokenTTLHours, "ttl", 72, "token lifetime in hours")
	rootCmd.AddCommand(tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, db *repo.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("oracle", cfg.Oracle.Provider),
		zap.String("dict_store", cfg.Dictionary.Store),
	)

	kbRepo := repo.NewKnowledgeBaseRepo(db)
	docRepo := repo.NewDocumentRepo(db)
	clusterRepo := repo.NewClusterRepo(db)
	suggestionRepo := repo.NewSuggestionRepo(db)

	storeArgs := cfg.Dictionary.Data
	dictKey := cfg.Dictionary.Key
	if cfg.Dictionary.Store == "local" {
		if storeArgs == nil {
			storeArgs = map[string]interface{}{"dir": filepath.Dir(cfg.Dictionary.Path)}
		}
		if dictKey == "" {
			dictKey = filepath.Base(cfg.Dictionary.Path)
		}
	}
	store, err := snapstore.New(cfg.Dictionary.Store, storeArgs)
	if err != nil {
		return fmt.Errorf("init snapshot store: %w", err)
	}

	providerArgs := cfg.Oracle.Data
	if providerArgs == nil {
		providerArgs = cfg.Oracle
	}
	provider, err := oracle.NewProvider(cfg.Oracle.Provider, providerArgs)
	if err != nil {
		return fmt.Errorf("init oracle provider: %w", err)
	}
	relater := semdict.WrapLruCacheToRelater(
		oracle.NewRelater(provider, cfg.Oracle.Model),
		cfg.Oracle.CacheSize,
		time.Minute*time.Duration(cfg.Oracle.CacheTTLMinutes),
	)

	dict := semdict.New(relater, store, dictKey, time.Second*time.Duration(cfg.Oracle.TimeoutSeconds))
	if err := dict.Load(context.Background()); err != nil {
		return fmt.Errorf("load dictionary snapshot: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("dictionary ready", zap.Int("synonyms", dict.SynonymCount()))

	idx := index.NewManager()
	detector := dedup.NewDetector(idx)

	clusterCfg := cluster.DefaultConfig()
	if cfg.Clustering.ExactWeight != nil {
		clusterCfg.ExactWeight = *cfg.Clustering.ExactWeight
	}
	if cfg.Clustering.SemanticWeight != nil {
		clusterCfg.SemanticWeight = *cfg.Clustering.SemanticWeight
	}
	if cfg.Clustering.AcceptThreshold != nil {
		clusterCfg.AcceptThreshold = *cfg.Clustering.AcceptThreshold
	}
	clusterEngine := cluster.NewEngine(clusterCfg, dict, clusterRepo, docRepo)
	suggestEngine := suggest.NewEngine(docRepo, clusterRepo, suggestionRepo, cfg.Suggestions.DefaultMax)

	kbService := service.NewKnowledgeBaseService(kbRepo, docRepo, clusterRepo, suggestionRepo, idx, detector)
	docService := service.NewDocumentService(kbRepo, docRepo, idx, clusterEngine, detector)
	searchService := service.NewSearchService(kbRepo, docRepo, clusterRepo, idx, docService)
	analysisService := service.NewAnalysisService(kbRepo, docRepo, clusterRepo, detector, docService)
	suggestionService := service.NewSuggestionService(kbRepo, suggestEngine)

	deps := handler.RouterDeps{
		KBs:         handler.NewKBHandler(kbService),
		Documents:   handler.NewDocumentHandler(docService),
		Search:      handler.NewSearchHandler(searchService),
		Analysis:    handler.NewAnalysisHandler(analysisService),
		Suggestions: handler.NewSuggestionHandler(suggestionService),
		JWTSecret:   []byte(cfg.JWTSecret),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewDictFlushJob(dict), cfg.Dictionary.FlushCron); err != nil {
		return err
	}
	if err := scheduler.AddJob(job.NewDuplicateScanJob(kbRepo, analysisService, cfg.Duplicates.Threshold), cfg.Duplicates.ScanCron); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	scheduler.Start(ctx)

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	scheduler.Stop()
	if dict.Dirty() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := dict.Flush(flushCtx); err != nil {
			logutil.GetLogger(context.Background()).Error("final dictionary flush failed", zap.Error(err))
		}
	}
	return nil
}
