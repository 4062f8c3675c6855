// Command qrctl inspects QR tokens and purges long-expired records.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"csy/internal/config"
	"csy/internal/logger"
	"csy/internal/repositories"
	"csy/internal/services/qr"
)

func main() {
	config.LoadEnv()

	cmd := &cli.Command{
		Name:  "qrctl",
		Usage: "operate on QR tokens",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "store",
				Usage: "token store driver (postgres, sqlite, memory)",
				Value: config.GetEnv("QR_STORE_DRIVER", config.StoreDriverPostgres),
			},
			&cli.StringFlag{
				Name:  "sqlite-path",
				Usage: "database file for the sqlite store",
				Value: config.GetEnv("QR_SQLITE_PATH", "qr_tokens.db"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "inspect",
				Usage:     "decode a token and show its stored state",
				ArgsUsage: "<token>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "offline",
						Usage: "only verify and decode, do not read the store",
					},
				},
				Action: inspect,
			},
			{
				Name:  "purge",
				Usage: "delete records that expired before now minus --older-than",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "retention window for expired records",
						Value: config.GetDurationEnv("QR_CLEANUP_RETENTION", 720*time.Hour),
					},
				},
				Action: purge,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("qrctl: %v", err)
	}
}

func qrConfig(cmd *cli.Command) config.QRConfig {
	cfg := config.LoadQR()
	cfg.StoreDriver = cmd.String("store")
	cfg.SQLitePath = cmd.String("sqlite-path")
	return cfg
}

func openStore(cfg config.QRConfig) (qr.TokenStore, func() error, error) {
	var db *gorm.DB
	if cfg.StoreDriver == config.StoreDriverPostgres {
		zl, err := logger.NewLogger(config.LogConfig{Level: "warn", Format: "console"})
		if err != nil {
			return nil, nil, err
		}
		db, err = repositories.InitDB(config.LoadDatabase(), zl)
		if err != nil {
			return nil, nil, err
		}
	}
	return repositories.NewTokenStore(cfg, db)
}

func inspect(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("inspect takes exactly one token")
	}
	token := cmd.Args().First()
	cfg := qrConfig(cmd)

	codec, err := qr.NewCodec([]byte(cfg.SigningSecret))
	if err != nil {
		return err
	}
	fields, err := codec.Decode(token)
	if err != nil {
		return err
	}
	out := map[string]interface{}{"fields": fields}

	if !cmd.Bool("offline") {
		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = closeStore() }()

		rec, err := store.Get(ctx, fields.ID)
		if err != nil {
			return err
		}
		out["status"] = qr.NewTokenStatus(rec, time.Now())
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func purge(ctx context.Context, cmd *cli.Command) error {
	store, closeStore, err := openStore(qrConfig(cmd))
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	cleaner := qr.NewCleaner(store, 0, cmd.Duration("older-than"), nil, zap.NewNop())
	n, err := cleaner.RunOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("purged %d expired tokens\n", n)
	return nil
}
