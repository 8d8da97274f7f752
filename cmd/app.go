package cmd

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"hotel-booking/auth"
	"hotel-booking/config"
	"hotel-booking/notify"
	"hotel-booking/storage"
)

// deps are the shared handles every command builds from the loaded configuration.
type deps struct {
	db     *gorm.DB
	rdb    *redis.Client
	store  storage.BlobStore
	text   *notify.GenAIClient
	outbox *notify.Outbox
}

func openDeps(ctx context.Context, c *config.Config) (*deps, error) {
	db, err := config.ConnectDatabase(c.Database.MySQL, log)
	if err != nil {
		return nil, fmt.Errorf("database connect failed: %w", err)
	}

	rdb, err := config.ConnectRedis(ctx, c.Redis)
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("redis connect failed: %w", err)
	}

	store, err := storage.New(ctx, c.Storage)
	if err != nil {
		closeDB(db)
		rdb.Close()
		return nil, fmt.Errorf("blob store init failed: %w", err)
	}

	mailer, err := notify.NewHotelMailer(ctx, c.Mail, log)
	if err != nil {
		closeDB(db)
		rdb.Close()
		return nil, fmt.Errorf("mailer init failed: %w", err)
	}

	text := notify.NewGenAIClient(c.GenAI, log)
	deliverer := notify.NewEmailDeliverer(db, mailer, text, c.App.FrontendURL, log)
	outbox := notify.NewOutbox(db, rdb, deliverer, c.Outbox, log)

	return &deps{db: db, rdb: rdb, store: store, text: text, outbox: outbox}, nil
}

func (d *deps) close() {
	closeDB(d.db)
	if err := d.rdb.Close(); err != nil {
		log.Warn("redis close failed", map[string]interface{}{"error": err.Error()})
	}
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func newVerifier(c *config.Config, rdb *redis.Client) (*auth.JWTManager, *auth.Verifier) {
	jwt := auth.NewJWTManager(c.Auth.JWTSecret, c.Auth.SessionTTL)
	return jwt, auth.NewVerifier(jwt, auth.NewRedisRevocationStore(rdb), c.Auth.CookieName)
}
