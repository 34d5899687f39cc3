package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medicare/voiceclinic/internal/config"
	"github.com/medicare/voiceclinic/internal/platform/db"
	"github.com/medicare/voiceclinic/internal/platform/knowledge"
	"github.com/medicare/voiceclinic/internal/platform/lock"
	"github.com/medicare/voiceclinic/internal/platform/notification"
	"github.com/medicare/voiceclinic/migrations"
)

func buildLocker(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (lock.Locker, func(), error) {
	if cfg.LockBackend != "redis" {
		return lock.NewLocalLocker(), func() {}, nil
	}
	client, err := lock.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("using redis slot lock")
	return lock.NewRedisLocker(client, cfg.LockTTL, logger), func() { client.Close() }, nil
}

func smtpSender(cfg *config.Config) *notification.SMTPSender {
	return notification.NewSMTPSender(notification.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.ClinicName,
	})
}

func buildSender(cfg *config.Config, logger zerolog.Logger) (notification.EmailSender, func(), error) {
	switch cfg.NotifyMode {
	case "smtp":
		return smtpSender(cfg), func() {}, nil
	case "queue":
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to rabbitmq: %w", err)
		}
		qs, err := notification.NewQueueSender(conn, cfg.NotifyQueue)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		logger.Info().Str("queue", cfg.NotifyQueue).Msg("queueing notifications")
		return qs, func() {
			qs.Close()
			conn.Close()
		}, nil
	default:
		return notification.NewLogSender(logger), func() {}, nil
	}
}

func buildLoader(cfg *config.Config, logger zerolog.Logger) (knowledge.Loader, error) {
	if cfg.KBSource != "minio" {
		return knowledge.DirLoader{Dir: cfg.KBDir, Logger: logger}, nil
	}
	client, err := knowledge.NewMinioClient(knowledge.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return knowledge.BucketLoader{Client: client, Bucket: cfg.MinioBucket, Logger: logger}, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status, appliedAt := "pending", ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			return nil
		},
	})

	return cmd
}

func notifyWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify-worker",
		Short: "Deliver queued notifications by SMTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AMQPURL == "" {
				return fmt.Errorf("AMQP_URL is required")
			}
			logger := newLogger(cfg.Env, os.Stdout)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			conn, err := amqp.Dial(cfg.AMQPURL)
			if err != nil {
				return fmt.Errorf("connect to rabbitmq: %w", err)
			}
			defer conn.Close()

			worker, err := notification.NewWorker(conn, notification.WorkerConfig{
				Queue:    cfg.NotifyQueue,
				Prefetch: 4,
			}, smtpSender(cfg), logger)
			if err != nil {
				return err
			}
			defer worker.Close()

			return worker.Run(ctx)
		},
	}
}

func kbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Knowledge base tools",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Load the knowledge base once and report the document count",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Env, os.Stderr)

			loader, err := buildLoader(cfg, logger)
			if err != nil {
				return err
			}
			idx := knowledge.NewIndex(loader, logger)
			if err := idx.Load(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d document(s) from %s.\n", idx.Len(), cfg.KBSource)
			return nil
		},
	})

	return cmd
}
