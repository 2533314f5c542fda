package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abduss/pinstore/internal/mirror"
	"github.com/abduss/pinstore/internal/storage"
)

func init() {
	rootCmd.AddCommand(mirrorCmd)
}

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Copy every stored object to the MinIO mirror bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		minioClient, err := storage.OpenMirror(ctx, a.cfg.MinIO)
		if err != nil {
			return err
		}

		svc := mirror.NewService(minioClient, a.cfg.MinIO.Bucket, a.cfg.Mirror.LinkTTL, a.log.Named("mirror"))
		result, err := svc.Sync(ctx, a.gateway)
		if err != nil {
			a.log.Error("mirror sync", zap.Error(err))
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d, already mirrored %d\n", result.Uploaded, result.Skipped)
		return nil
	},
}
