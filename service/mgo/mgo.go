package mgo

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"SupportChat/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Config for the Mongo connection.
type Config struct {
	Uri         string
	Database    string
	Username    string
	Password    string
	MaxPoolSize uint64
}

type MongoManager struct {
	mu        sync.RWMutex
	db        *mongo.Database
	readyCh   chan struct{} // closed once on first successful connect
	readyOnce sync.Once

	lastErr atomic.Value // error
}

var globalMgr = MongoManager{readyCh: make(chan struct{})}

// StartAsync runs until ctx is done; closes the ready channel on the first
// successful connect and reconnects with backoff if the link drops.
func StartAsync(ctx context.Context, cfg *Config) {
	go func() {
		const (
			baseBackoff = 200 * time.Millisecond
			maxBackoff  = 5 * time.Second
			healthEvery = 10 * time.Second
			failThresh  = 3
		)

		for {
			// connect phase, with backoff + jitter
			attempt := 0
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				db, err := dial(ctx, cfg)
				if err == nil {
					globalMgr.mu.Lock()
					globalMgr.db = db
					globalMgr.mu.Unlock()
					globalMgr.readyOnce.Do(func() { close(globalMgr.readyCh) })
					logger.Infof("[mongo] connected uri=%s db=%s", cfg.Uri, cfg.Database)
					break
				}
				globalMgr.lastErr.Store(err)
				logger.Warnf("[mongo] connect failed: %v", err)

				backoff := baseBackoff << attempt
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				jitter := time.Duration(rand.Int63n(int64(backoff/5) + 1))
				timer := time.NewTimer(backoff - jitter/2)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
				if attempt < 6 {
					attempt++
				}
			}

			// health phase: ping until the link drops, then reconnect
			fail := 0
			ticker := time.NewTicker(healthEvery)
			alive := true
			for alive {
				select {
				case <-ctx.Done():
					ticker.Stop()
					globalMgr.mu.Lock()
					if globalMgr.db != nil {
						_ = globalMgr.db.Client().Disconnect(context.Background())
						globalMgr.db = nil
					}
					globalMgr.mu.Unlock()
					return
				case <-ticker.C:
					globalMgr.mu.RLock()
					db := globalMgr.db
					globalMgr.mu.RUnlock()
					if db == nil {
						alive = false
						break
					}
					if err := db.Client().Ping(ctx, readpref.Primary()); err != nil {
						fail++
						globalMgr.lastErr.Store(err)
						if fail >= failThresh {
							globalMgr.mu.Lock()
							_ = db.Client().Disconnect(context.Background())
							globalMgr.db = nil
							globalMgr.mu.Unlock()
							alive = false
						}
					} else {
						fail = 0
					}
				}
			}
			ticker.Stop()
		}
	}()
}

func dial(ctx context.Context, cfg *Config) (*mongo.Database, error) {
	opts := options.Client().ApplyURI(cfg.Uri)
	if cfg.Username != "" && cfg.Password != "" {
		opts.SetAuth(options.Credential{Username: cfg.Username, Password: cfg.Password})
	}
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	cli, err := mongo.Connect(dctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(dctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, err
	}
	return cli.Database(cfg.Database), nil
}

// Ready is closed after the first successful connect.
func Ready() <-chan struct{} {
	return globalMgr.readyCh
}

// WaitReady blocks until the first connect or ctx cancellation.
func WaitReady(ctx context.Context) error {
	select {
	case <-globalMgr.readyCh:
		return nil
	case <-ctx.Done():
		if err := Err(); err != nil {
			return fmt.Errorf("mongo not ready: %w", err)
		}
		return ctx.Err()
	}
}

// Err reports the most recent connection error.
func Err() error {
	if v := globalMgr.lastErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func GetDB() *mongo.Database {
	globalMgr.mu.RLock()
	defer globalMgr.mu.RUnlock()
	if globalMgr.db == nil {
		panic("Mongo not ready: wait Ready() or use TryGetDB()")
	}
	return globalMgr.db
}

func TryGetDB() (*mongo.Database, bool) {
	globalMgr.mu.RLock()
	defer globalMgr.mu.RUnlock()
	if globalMgr.db == nil {
		return nil, false
	}
	return globalMgr.db, true
}
