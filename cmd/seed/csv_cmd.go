package main

import (
	"os"

	"github.com/ludwigramirez-source/nexus-sub002/internal/seed"
	"github.com/spf13/cobra"
)

func newCSVCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "csv",
		Short: "从 CSV 文件导入成员和需求",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			_, repo, dbpool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer dbpool.Close()

			_, err = seed.CSV(cmd.Context(), repo, f)
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "CSV 文件路径")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
