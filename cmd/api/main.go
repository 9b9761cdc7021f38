package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ludwigramirez-source/nexus-sub002/internal/config"
	"github.com/ludwigramirez-source/nexus-sub002/internal/coordinator"
	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/ludwigramirez-source/nexus-sub002/internal/editbuffer"
	"github.com/ludwigramirez-source/nexus-sub002/internal/handler"
	"github.com/ludwigramirez-source/nexus-sub002/internal/metrics"
	"github.com/ludwigramirez-source/nexus-sub002/internal/migrations"
	"github.com/ludwigramirez-source/nexus-sub002/internal/pool"
	"github.com/ludwigramirez-source/nexus-sub002/internal/publisher"
	"github.com/ludwigramirez-source/nexus-sub002/internal/repository"
	"github.com/ludwigramirez-source/nexus-sub002/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 加载配置
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法加载配置文件", "error", err)
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(dbpool); err != nil {
			logger.Error("无法执行数据库迁移", "error", err)
			return
		}
	}

	/**********************************************
	 * 创建 repository
	 **********************************************/
	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 连接 rabbitmq
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 rabbitmq", "error", err)
		return
	}
	defer conn.Close()

	// 建立通道
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法建立通道", "error", err)
		return
	}
	defer ch.Close()

	// 声明队列
	if _, err := publisher.DeclareQueue(ch, cfg.RabbitMQ.Queue); err != nil {
		logger.Error("无法声明队列", "error", err)
		return
	}
	pub := publisher.NewAMQPPublisher(ch, cfg.RabbitMQ.Queue, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second)

	/**********************************************
	 * 连接 redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer rdb.Close()

	redisCtx, redisCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Redis.ConnectTimeout)*time.Second)
	defer redisCancel()
	if err := rdb.Ping(redisCtx).Err(); err != nil {
		logger.Error("无法连接到 redis", "error", err)
		return
	}

	requestPool := pool.NewRedisPool(rdb, cfg.Redis.PoolKey, time.Duration(cfg.Redis.OperationExpiration)*time.Second)
	locker := pool.NewRedisLocker(
		rdb,
		time.Duration(cfg.Lock.TTL)*time.Second,
		time.Duration(cfg.Lock.RetryDelay)*time.Millisecond,
		cfg.Lock.MaxRetries,
	)

	// 启动时根据数据库重建待分配队列
	unassigned, err := repo.GetUnassignedRequests(context.Background())
	if err != nil {
		logger.Error("无法获取待分配需求", "error", err)
		return
	}
	if err := requestPool.Rebuild(context.Background(), unassigned); err != nil {
		logger.Error("无法重建待分配队列", "error", err)
		return
	}
	logger.Info("待分配队列已重建", slog.Int("count", len(unassigned)))

	/**********************************************
	 * 创建指标
	 **********************************************/
	recorder, err := metrics.NewPrometheus(nil, "nexus")
	if err != nil {
		logger.Error("无法注册指标", "error", err)
		return
	}

	/**********************************************
	 * 创建 coordinator
	 **********************************************/
	sched := scheduler.New(&scheduler.Parameters{
		MaxHoursPerDay: decimal.NewFromInt(int64(cfg.Planner.MaxHoursPerDay)),
		MaxPlanDays:    cfg.Planner.MaxPlanDays,
	})

	coord := coordinator.New(repo, sched, pub, requestPool,
		coordinator.WithLogger(logger),
		coordinator.WithMetrics(recorder),
		coordinator.WithLocker(locker),
	)

	edits := editbuffer.New(
		time.Duration(cfg.EditBuffer.Quiescence)*time.Millisecond,
		func(ctx context.Context, id int64, patch domain.AssignmentPatch, actorID int64) error {
			_, err := coord.UpdateAssignment(ctx, id, patch, actorID)
			return err
		},
		logger,
	)

	/**********************************************
	 * 创建 handler
	 **********************************************/
	handler, err := handler.NewHandler(cfg, handler.Dependencies{
		Store:       repo,
		Coordinator: coord,
		Pool:        requestPool,
		Edits:       edits,
		Metrics:     promhttp.Handler(),
	})
	if err != nil {
		logger.Error("无法创建 handler", "error", err)
		return
	}
	handler.RegisterRoutes()

	/**********************************************
	 * 启动 HTTP 服务器
	 **********************************************/
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      handler.Mux,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("正在启动服务器...", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("无法启动服务器", slog.String("error", err.Error()))
			return
		}
	}()

	<-quit
	logger.Info("正在关闭服务器...")

	ctx, cancel = context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("关闭服务器失败", slog.String("error", err.Error()))
	}

	// 写入还在缓冲中的修改
	edits.Close(ctx)
	logger.Info("服务器已成功关闭")
}
