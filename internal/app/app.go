package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corray333/backend-labs/registration/internal/codec"
	"github.com/corray333/backend-labs/registration/internal/config"
	"github.com/corray333/backend-labs/registration/internal/connectivity"
	"github.com/corray333/backend-labs/registration/internal/dal/interfaces/ieventrepo"
	"github.com/corray333/backend-labs/registration/internal/dal/interfaces/isubmissionrepo"
	"github.com/corray333/backend-labs/registration/internal/dal/interfaces/iusercache"
	"github.com/corray333/backend-labs/registration/internal/dal/postgres"
	"github.com/corray333/backend-labs/registration/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/registration/internal/dal/redis"
	eventrepo "github.com/corray333/backend-labs/registration/internal/dal/repositories/events/rabbitmq"
	submissionmemory "github.com/corray333/backend-labs/registration/internal/dal/repositories/submission/memory"
	submissionrepo "github.com/corray333/backend-labs/registration/internal/dal/repositories/submission/postgres"
	usercachememory "github.com/corray333/backend-labs/registration/internal/dal/repositories/usercache/memory"
	usercacheredis "github.com/corray333/backend-labs/registration/internal/dal/repositories/usercache/redis"
	"github.com/corray333/backend-labs/registration/internal/executor"
	"github.com/corray333/backend-labs/registration/internal/offlinequeue"
	"github.com/corray333/backend-labs/registration/internal/otel"
	"github.com/corray333/backend-labs/registration/internal/service/services/registrationsvc"
	"github.com/corray333/backend-labs/registration/internal/service/services/usersvc"
	httptransport "github.com/corray333/backend-labs/registration/internal/transport/http"
	replayworker "github.com/corray333/backend-labs/registration/internal/worker/replay"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// App represents the application.
type App struct {
	executor       *executor.Executor
	observer       *connectivity.Observer
	replayWorker   *replayworker.Worker
	transport      *httptransport.HTTPTransport
	postgresClient *postgres.Client
	redisClient    *redis.Client
	rabbitMqClient *rabbitmq.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	a := &App{}
	a.otelController = otel.MustInitOtel()

	httpClient := &http.Client{}

	var upstream executor.HTTPDoer = httpClient
	if viper.GetBool("breaker.enabled") {
		upstream = executor.NewBreakerDoer(httpClient, "upstream", executor.LoadBreakerConfig())
	}
	a.executor = executor.MustNewExecutor(upstream)
	a.observer = connectivity.MustNewObserver(httpClient)

	wireCodec := codec.MustNewCodec()
	baseURL := viper.GetString("upstream.base_url")

	registrationSvc := registrationsvc.MustNewRegistrationService(
		registrationsvc.WithBaseURL(baseURL),
		registrationsvc.WithCodec(wireCodec),
		registrationsvc.WithExecutor(a.executor),
		registrationsvc.WithQueue(offlinequeue.New("registration")),
		registrationsvc.WithObserver(a.observer),
		registrationsvc.WithSubmissionRepository(a.mustNewSubmissionRepository()),
		registrationsvc.WithEventPublisher(a.mustNewEventPublisher()),
	)

	userSvc := usersvc.MustNewUserService(
		usersvc.WithBaseURL(baseURL),
		usersvc.WithCodec(wireCodec),
		usersvc.WithExecutor(a.executor),
		usersvc.WithQueue(offlinequeue.New("users")),
		usersvc.WithObserver(a.observer),
		usersvc.WithUserCache(a.mustNewUserCache()),
	)

	a.replayWorker = replayworker.NewWorker(a.observer, registrationSvc.Queue(), userSvc.Queue())

	a.transport = httptransport.NewHTTPTransport(
		registrationSvc,
		userSvc,
		a.observer,
		registrationSvc.Queue(),
		userSvc.Queue(),
	)
	a.transport.RegisterRoutes()

	config.Watch(func() {
		a.executor.Reconfigure(executor.LoadConfig())
	})

	slog.Info("Registration gateway initialized",
		"upstream", baseURL,
		"transport", wireCodec.Name(),
		"breaker", viper.GetBool("breaker.enabled"),
	)

	return a
}

func (a *App) mustNewSubmissionRepository() isubmissionrepo.ISubmissionRepository {
	if !viper.GetBool("postgres.enabled") {
		return submissionmemory.NewSubmissionRepository()
	}
	a.postgresClient = postgres.MustNewClient()

	return submissionrepo.NewSubmissionRepository(a.postgresClient)
}

func (a *App) mustNewUserCache() iusercache.IUserCache {
	if !viper.GetBool("redis.enabled") {
		return usercachememory.NewUserCache()
	}
	a.redisClient = redis.MustNewClient()

	return usercacheredis.NewUserCache(
		a.redisClient,
		viper.GetString("redis.key"),
		time.Duration(viper.GetInt("redis.ttl_seconds"))*time.Second,
	)
}

func (a *App) mustNewEventPublisher() ieventrepo.IEventPublisher {
	if !viper.GetBool("rabbitmq.enabled") {
		return nil
	}
	a.rabbitMqClient = rabbitmq.MustNewClient()

	return eventrepo.NewEventRabbitMQRepository(a.rabbitMqClient, viper.GetString("rabbitmq.queue"))
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting HTTP server", "port", viper.GetString("server.http.port"))
		if err := a.transport.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		a.observer.Start(ctx)

		return nil
	})

	g.Go(func() error {
		a.replayWorker.Start(ctx)

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutdown signal received")
		a.gracefulShutdown()

		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("Application stopped with error", "error", err)
	}
}

// gracefulShutdown stops the HTTP server first, then the background loops and
// finally the backing clients.
func (a *App) gracefulShutdown() {
	timeout := time.Duration(viper.GetInt("server.http.shutdown_timeout_seconds")) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	a.replayWorker.Stop()
	a.observer.Stop()

	if a.rabbitMqClient != nil {
		if err := a.rabbitMqClient.Close(); err != nil {
			slog.Error("RabbitMQ connection close error", "error", err)
		} else {
			slog.Info("RabbitMQ connection closed gracefully")
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			slog.Error("Redis connection close error", "error", err)
		}
	}

	if a.postgresClient != nil {
		a.postgresClient.Close()
		slog.Info("Database connection closed gracefully")
	}

	if err := a.otelController.Shutdown(ctx); err != nil {
		slog.Error("Otel trace provider connection close error", "error", err)
	}

	select {
	case <-ctx.Done():
		slog.Warn("Shutdown timeout exceeded")
	default:
		slog.Info("Application shutdown complete")
	}
}
