package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abduss/pinstore/internal/config"
	"github.com/abduss/pinstore/internal/errkind"
	"github.com/abduss/pinstore/internal/gateway"
	"github.com/abduss/pinstore/internal/logger"
	"github.com/abduss/pinstore/internal/state"
	"github.com/abduss/pinstore/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "pinstore",
	Short: "pinstore - a pin-based, content-addressed object store",
	Long: `pinstore keeps compressed, content-addressed objects in a single bucket.
Objects stay alive while at least one address pins them and are deleted
once forgotten by every pinning address.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles what every command needs once configuration is loaded.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	store   state.Store
	gateway *gateway.Gateway
	close   func()
}

func newApp(ctx context.Context) (*app, error) {
	logg, err := logger.Init()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	store, closeStore, err := storage.OpenState(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}

	return &app{
		cfg:     cfg,
		log:     logg,
		store:   store,
		gateway: gateway.NewFromState(store, logg.Named("gateway")),
		close: func() {
			closeStore()
			_ = logg.Sync()
		},
	}, nil
}

// ensureBucket instantiates the bucket on an empty state, from the
// instantiate file when one is configured.
func (a *app) ensureBucket(ctx context.Context) error {
	_, err := a.gateway.Bucket(ctx)
	if err == nil || !errors.Is(err, errkind.ErrNotFound) {
		return err
	}

	in := a.cfg.Bucket.Input()
	if path := a.cfg.Bucket.InstantiateFile; path != "" {
		doc, err := config.LoadInstantiate(path)
		if err != nil {
			return err
		}
		in = doc.Input()
	}

	b, err := a.gateway.InstantiateBucket(ctx, "config", in)
	if err != nil {
		return fmt.Errorf("instantiate bucket: %w", err)
	}
	a.log.Info("state instantiated", zap.String("bucket", b.Name))
	return nil
}
