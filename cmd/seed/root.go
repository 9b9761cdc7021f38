package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/ludwigramirez-source/nexus-sub002/internal/config"
	"github.com/ludwigramirez-source/nexus-sub002/internal/repository"
	"github.com/spf13/cobra"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "向数据库插入测试数据",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newMembersCmd())
	cmd.AddCommand(newRequestsCmd())
	cmd.AddCommand(newCSVCmd())
	cmd.AddCommand(newPoolRebuildCmd())
	return cmd
}

func execute() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	if err := newRootCmd().Execute(); err != nil {
		slog.Error("执行失败", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// connect 读取配置并创建 repository，调用方负责关闭返回的连接池
func connect(ctx context.Context) (*config.Config, *repository.Repository, *sql.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		return nil, nil, nil, err
	}

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	pingCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(pingCtx); err != nil {
		dbpool.Close()
		return nil, nil, nil, err
	}

	return cfg, repository.NewRepository(cfg, dbpool), dbpool, nil
}
