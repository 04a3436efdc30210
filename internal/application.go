package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel/trace"

	"github.com/rocketscienceinc/pebbles-backend/internal/config"
	"github.com/rocketscienceinc/pebbles-backend/internal/repository"
	"github.com/rocketscienceinc/pebbles-backend/internal/repository/storage"
	"github.com/rocketscienceinc/pebbles-backend/internal/telemetry"
	"github.com/rocketscienceinc/pebbles-backend/internal/usecase"
	"github.com/rocketscienceinc/pebbles-backend/pkg/random"
	"github.com/rocketscienceinc/pebbles-backend/transport/rest"
	"github.com/rocketscienceinc/pebbles-backend/transport/websocket"
)

var (
	ErrAddrNotFound   = errors.New("redis address string is empty")
	ErrUnknownStorage = errors.New("unknown storage")
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	tracer, shutdownTracing, err := initTracing(ctx, conf)
	if err != nil {
		return err
	}

	defer func() {
		if err = shutdownTracing(context.Background()); err != nil {
			log.Error("could not flush traces", "error", err)
		}
	}()

	gameRepo, closeGames, err := initGameRepository(ctx, conf)
	if err != nil {
		return err
	}

	defer func() {
		if err = closeGames(); err != nil {
			log.Error("could not close game storage", "error", err)
		}
	}()

	resultRepo, closeLedger, err := initLedger(ctx, conf)
	if err != nil {
		return err
	}
	defer closeLedger()

	gameUseCase := usecase.NewGameManager(logger, tracer, random.New(), gameRepo, resultRepo)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(ctx, conf.HTTPPort, rest.NewRouter(logger, gameUseCase)); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, gameUseCase, conf.AllowedOrigins)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

func initTracing(ctx context.Context, conf *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !conf.Telemetry.Enabled {
		return telemetry.NoopTracer(), func(context.Context) error { return nil }, nil
	}

	tracer, shutdown, err := telemetry.Setup(ctx, conf)
	if err != nil {
		return nil, nil, fmt.Errorf("could not set up telemetry: %w", err)
	}

	return tracer, shutdown, nil
}

func initGameRepository(ctx context.Context, conf *config.Config) (repository.GameRepository, func() error, error) {
	if conf.Storage == config.StorageMemory {
		return repository.NewMemoryGameRepository(), func() error { return nil }, nil
	}

	if conf.Storage != config.StorageRedis {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownStorage, conf.Storage)
	}

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return nil, nil, ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedis(ctx, redisAddrString)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	return repository.NewGameRepository(redisStorage, conf.Redis.GameTTL), redisStorage.Close, nil
}

// initLedger - connects the result ledger; without a DSN games are not recorded.
func initLedger(ctx context.Context, conf *config.Config) (repository.ResultRepository, func(), error) {
	if !conf.Postgres.HasLedger() {
		return nil, func() {}, nil
	}

	db, err := storage.NewPostgres(ctx, conf.Postgres.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to postgres: %w", err)
	}

	if err = storage.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("could not migrate postgres: %w", err)
	}

	return repository.NewResultRepository(db), db.Close, nil
}
