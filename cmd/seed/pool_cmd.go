package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ludwigramirez-source/nexus-sub002/internal/pool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newPoolRebuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool-rebuild",
		Short: "根据数据库重建 redis 中的待分配队列",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, repo, dbpool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer dbpool.Close()

			rdb := redis.NewClient(&redis.Options{
				Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
				Password: cfg.Redis.Password,
				DB:       0,
			})
			defer rdb.Close()

			requests, err := repo.GetUnassignedRequests(cmd.Context())
			if err != nil {
				return err
			}

			p := pool.NewRedisPool(rdb, cfg.Redis.PoolKey, time.Duration(cfg.Redis.OperationExpiration)*time.Second)
			if err := p.Rebuild(cmd.Context(), requests); err != nil {
				return err
			}

			slog.Info("待分配队列已重建", slog.Int("count", len(requests)))
			return nil
		},
	}
	return cmd
}
