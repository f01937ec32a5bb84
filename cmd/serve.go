package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dealercrm/internal/config"
	"dealercrm/internal/database"
	"dealercrm/internal/gateway"
	"dealercrm/internal/server"
)

var (
	serveAddr string
	devMode   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the remote backup server",
	Long: `Serve the backup API on --addr. Backups are stored through the driver
named by BACKUP_DRIVER (sqlite, mysql or mongo) and only the newest
BACKUP_RETENTION entries are kept.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (defaults to SERVER_ADDR)")
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "Run gin in debug mode")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	gw := gateway.New(repo,
		gateway.WithRetention(cfg.Backup.Retention),
		gateway.WithLogger(logger),
	)

	addr := serveAddr
	if addr == "" {
		addr = cfg.ServerAddr
	}
	return server.NewServer(gw, logger, devMode).Run(ctx, addr)
}

func openRepository(ctx context.Context) (gateway.Repository, func() error, error) {
	if cfg.Backup.Driver == config.DriverMongo {
		m, err := database.NewMongoDB(ctx, cfg.Backup.MongoURI, cfg.Backup.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		repo, err := database.NewMongoRepository(ctx, m)
		if err != nil {
			m.Close()
			return nil, nil, err
		}
		return repo, m.Close, nil
	}

	repo, err := database.OpenSQL(ctx, cfg.Backup.Driver, cfg.Backup.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open backup database: %w", err)
	}
	return repo, repo.Close, nil
}
