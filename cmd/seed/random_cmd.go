package main

import (
	"errors"
	"log/slog"

	"github.com/ludwigramirez-source/nexus-sub002/internal/seed"
	"github.com/spf13/cobra"
)

func newMembersCmd() *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "members",
		Short: "插入随机成员",
		RunE: func(cmd *cobra.Command, args []string) error {
			if n <= 0 {
				return errors.New("请输入合法的成员数量")
			}

			cfg, repo, dbpool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer dbpool.Close()

			cnt := seed.Members(cmd.Context(), repo, n, cfg.Seed.EmailDomain)
			slog.Info("插入成员成功", slog.Int("count", cnt))
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 5, "要插入的成员数量")
	return cmd
}

func newRequestsCmd() *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "requests",
		Short: "插入随机需求",
		RunE: func(cmd *cobra.Command, args []string) error {
			if n <= 0 {
				return errors.New("请输入合法的需求数量")
			}

			_, repo, dbpool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer dbpool.Close()

			cnt := seed.Requests(cmd.Context(), repo, n)
			slog.Info("插入需求成功", slog.Int("count", cnt))
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 5, "要插入的需求数量")
	return cmd
}
