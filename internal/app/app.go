// Package app assembles the server from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/auth"
	"github.com/park285/chess-coach/internal/chess"
	"github.com/park285/chess-coach/internal/chess/uci"
	"github.com/park285/chess-coach/internal/coach"
	"github.com/park285/chess-coach/internal/config"
	"github.com/park285/chess-coach/internal/msgcat"
	"github.com/park285/chess-coach/internal/obslog"
	"github.com/park285/chess-coach/internal/profile"
	"github.com/park285/chess-coach/internal/room"
	"github.com/park285/chess-coach/internal/transport/httpapi"
	"github.com/park285/chess-coach/internal/transport/ws"
)

type Deps struct {
	Handler  http.Handler
	Rooms    *room.Manager
	Hub      *ws.Hub
	Coach    *coach.Service
	Profiles *profile.Service
	Auth     *auth.Authenticator

	store profile.Store
	redis *redis.Client
}

// New wires every component. Callers must Close the result.
func New(ctx context.Context, cfg *config.AppConfig) (*Deps, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	d := &Deps{}
	ok := false
	defer func() {
		if !ok {
			_ = d.Close()
		}
	}()

	if needsRedis(cfg) {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		d.redis = redis.NewClient(opt)
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = d.redis.Ping(pctx).Err()
		cancel()
		if err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
	}

	store, err := openStore(ctx, cfg, d.redis)
	if err != nil {
		return nil, err
	}
	d.store = store
	d.Profiles = profile.NewService(store)

	var tokens auth.TokenStore = auth.NewMemoryTokenStore()
	if cfg.TokenStore == config.StoreRedis {
		tokens = auth.NewRedisTokenStore(d.redis)
	}
	d.Auth = auth.New(auth.Config{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		TokenTTL: cfg.AdminTokenTTL,
	}, tokens)

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	var engine coach.Analyzer
	engineOn, engineDepth := false, 0
	if cfg.StockfishEnabled {
		e, err := uci.NewEngine(uci.EngineConfig{
			BinaryPath: cfg.StockfishPath,
			Depth:      cfg.StockfishDepth,
			MaxProcs:   cfg.StockfishMaxProcs,
			Timeout:    cfg.EngineTimeout,
		})
		if err != nil {
			obslog.L().Warn("engine_unavailable", zap.String("path", cfg.StockfishPath), zap.Error(err))
		} else {
			engine = coach.NewEngineAnalyzer(e, cat)
			engineOn, engineDepth = true, e.Depth()
		}
	}
	d.Coach = coach.NewService(engine, coach.NewLocalAnalyzer(cat))

	d.Hub = ws.NewHub(ws.Options{OriginPatterns: cfg.AllowedOrigins})
	roomOpts := room.Options{
		BotReplyDelay: cfg.BotReplyDelay,
		Policy:        chess.RandomBlunder(rand.New(rand.NewSource(time.Now().UnixNano()))),
	}
	// without admin accounts room keys are free-form
	if d.Auth.Enabled() {
		roomOpts.CredentialValid = d.Auth.Validate
	}
	d.Rooms = room.NewManager(d.Hub, roomOpts)

	d.Handler = httpapi.NewRouter(httpapi.Deps{
		Coach:                   d.Coach,
		Profiles:                d.Profiles,
		Auth:                    d.Auth,
		Rooms:                   d.Rooms,
		Socket:                  d.Hub.Handler(d.Rooms),
		EngineEnabled:           engineOn,
		EngineDepth:             engineDepth,
		AdminRequiredForProfile: cfg.AdminRequiredForProfile,
	})

	obslog.L().Info("app_ready",
		zap.String("profile_store", cfg.ProfileStore),
		zap.String("token_store", cfg.TokenStore),
		zap.Bool("engine", engineOn),
		zap.Bool("admin_login", d.Auth.Enabled()),
	)
	ok = true
	return d, nil
}

func needsRedis(cfg *config.AppConfig) bool {
	return cfg.ProfileStore == config.StoreRedis || cfg.TokenStore == config.StoreRedis
}

func openStore(ctx context.Context, cfg *config.AppConfig, rdb *redis.Client) (profile.Store, error) {
	switch cfg.ProfileStore {
	case config.StoreRedis:
		return profile.NewRedisStore(rdb), nil
	case config.StorePostgres:
		return profile.NewPostgresStore(ctx, cfg.DatabaseURL)
	case config.StoreMongo:
		return profile.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return profile.NewMemoryStore(), nil
	}
}

func (d *Deps) Close() error {
	var errs []error
	if d.store != nil {
		errs = append(errs, d.store.Close())
	}
	if d.redis != nil {
		errs = append(errs, d.redis.Close())
	}
	return errors.Join(errs...)
}
