// Command mdd-server starts the MDD gRPC server.
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/topichub/internal/config"
	"github.com/and161185/topichub/internal/crypto"
	"github.com/and161185/topichub/internal/limiter"
	"github.com/and161185/topichub/internal/migrate"
	"github.com/and161185/topichub/internal/repository"
	"github.com/and161185/topichub/internal/repository/memory"
	"github.com/and161185/topichub/internal/repository/postgres"
	grpcserver "github.com/and161185/topichub/internal/server/grpc"
	"github.com/and161185/topichub/internal/service"
	"github.com/and161185/topichub/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

type repos struct {
	users    repository.UserRepository
	topics   repository.TopicRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	lim      limiter.Limiter
	close    func()
}

// openStore runs migrations and connects to PostgreSQL, or builds the in-memory store.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repos, error) {
	if cfg.Store == config.StoreMemory {
		s := memory.New(memory.SeedTopics...)
		logger.Warn("using in-memory store; data is lost on exit")
		return repos{
			users: s.Users(), topics: s.Topics(), posts: s.Posts(), comments: s.Comments(),
			lim:   limiter.Noop{},
			close: func() {},
		}, nil
	}

	if err := migrate.Up(ctx, cfg.DSN, logger); err != nil {
		return repos{}, err
	}
	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		return repos{}, err
	}
	return repos{
		users:    postgres.NewUserRepo(db),
		topics:   postgres.NewTopicRepo(db),
		posts:    postgres.NewPostRepo(db),
		comments: postgres.NewCommentRepo(db),
		lim:      limiter.NewPG(db.Pool, cfg.LoginWindow, cfg.LoginMaxFails, cfg.LoginBlockFor),
		close:    db.Close,
	}, nil
}

// main loads configuration, wires storage and services, and serves gRPC until SIGINT/SIGTERM.
func main() {
	cfg, err := config.Load()
	if err != nil {
		// no logger yet
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	logger, _ := zap.NewProduction()
	if cfg.Dev {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("store", cfg.Store),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer r.close()

	// Services
	tokens := token.NewManager([]byte(cfg.JWTSecret), cfg.TokenTTL(), token.WithIssuer(cfg.JWTIssuer))
	authSvc := service.NewAuthService(r.users, crypto.NewHasher(cfg.BcryptCost), tokens, r.lim, logger.Named("auth"))
	app := grpcserver.New(grpcserver.Services{
		Auth:     authSvc,
		Users:    service.NewUserService(r.users, r.topics, logger.Named("users")),
		Topics:   service.NewTopicService(r.topics),
		Posts:    service.NewPostService(r.posts, r.users, r.topics, logger.Named("posts")),
		Comments: service.NewCommentService(r.comments, r.posts, r.users, logger.Named("comments")),
	}, logger.Named("grpc"))

	// gRPC server with interceptors
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.LoggingUnary(logger),
			grpcserver.AuthUnary(authSvc),
		),
	}
	if cfg.TLS() {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			logger.Fatal("failed to load TLS cert/key", zap.Error(err))
		}
		opts = append(opts, grpc.Creds(creds))
	} else {
		logger.Warn("TLS disabled; set MDD_TLS_CERT and MDD_TLS_KEY")
	}
	s := grpc.NewServer(opts...)
	grpcserver.RegisterAPI(s, app)

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(grpcserver.ServiceName, healthpb.HealthCheckResponse_SERVING)
	if cfg.Dev {
		reflection.Register(s)
	}

	// Listen
	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.Bool("tls", cfg.TLS()))
		errCh <- s.Serve(lis)
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		hs.Shutdown()
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.Stop()
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		r.close()
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
