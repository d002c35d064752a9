package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hilthontt/roomkeeper/internal/infrastructure/configs"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/logging"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/ratelimiter"
	healthHandler "github.com/hilthontt/roomkeeper/internal/presentation/handler/health"
	roomHandler "github.com/hilthontt/roomkeeper/internal/presentation/handler/rooms"
)

type Application struct {
	config         configs.Config
	roomHandler    *roomHandler.Handler
	healthHandler  *healthHandler.Handler
	metricsHandler http.Handler
	logger         logging.Logger
	ratelimiter    ratelimiter.Limiter
	attempts       *ratelimiter.AttemptLimiter
}

func NewApplication(
	config configs.Config,
	roomHandler *roomHandler.Handler,
	healthHandler *healthHandler.Handler,
	metricsHandler http.Handler,
	logger logging.Logger,
	ratelimiter ratelimiter.Limiter,
	attempts *ratelimiter.AttemptLimiter,
) *Application {
	return &Application{
		config:         config,
		roomHandler:    roomHandler,
		healthHandler:  healthHandler,
		metricsHandler: metricsHandler,
		logger:         logger,
		ratelimiter:    ratelimiter,
		attempts:       attempts,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(app.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(app.enableCors)

	if app.metricsHandler != nil {
		r.Handle("/metrics", app.metricsHandler)
	}
	r.Get("/healthz", app.healthHandler.GetHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(app.rateLimiterMiddleware)
		r.Use(middleware.Timeout(app.config.HTTP.RequestTimeout))

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", app.roomHandler.ListRoomsHandler)
			r.Post("/", app.roomHandler.CreateRoomHandler)
			r.Get("/stats", app.roomHandler.StatsHandler)

			r.Route("/{roomId}", func(r chi.Router) {
				r.Get("/", app.roomHandler.GetRoomHandler)
				r.Patch("/", app.roomHandler.UpdateRoomHandler)
				r.Delete("/", app.roomHandler.DissolveRoomHandler)
				r.Post("/leave", app.roomHandler.LeaveRoomHandler)

				r.Group(func(r chi.Router) {
					r.Use(app.guardedAttemptsMiddleware)
					r.Post("/join", app.roomHandler.JoinRoomHandler)
					r.Post("/verify-password", app.roomHandler.VerifyPasswordHandler)
				})
			})
		})

		r.Get("/health", app.healthHandler.GetHealth)
		r.Get("/healthz", app.healthHandler.GetHealth)
		r.Get("/ready", app.healthHandler.GetReady)
		r.Get("/live", app.healthHandler.GetHealth)
	})

	return otelhttp.NewHandler(r, "roomkeeper.http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Run serves until ctx is cancelled, then drains in-flight requests within
// the configured shutdown timeout.
func (app *Application) Run(ctx context.Context, mux http.Handler) error {
	srv := &http.Server{
		Addr:         app.config.HTTP.Addr(),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error, 1)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.config.HTTP.ShutdownTimeout)
		defer cancel()

		app.logger.Info(logging.General, logging.Shutdown, "shutting down server", map[logging.ExtraKey]any{
			"addr": srv.Addr,
		})

		shutdown <- srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdown; err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Shutdown, "server has stopped", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	return nil
}
