package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/mission-server/internal/handlers/v1/mission"
	"github.com/carson-networks/mission-server/internal/handlers/v1/realtime"
	"github.com/carson-networks/mission-server/internal/handlers/v1/status"
	"github.com/carson-networks/mission-server/internal/logging"
	"github.com/carson-networks/mission-server/internal/operator"
	notify "github.com/carson-networks/mission-server/internal/realtime"
	"github.com/carson-networks/mission-server/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// StatusProbe backs /status with the write path and the notifier.
type StatusProbe struct {
	Operator *operator.OperatorDelegator
	Notifier *notify.Notifier
}

func (p StatusProbe) Stopped() bool  { return p.Operator.Stopped() }
func (p StatusProbe) Connected() int { return p.Notifier.Connected() }

type Rest struct {
	Logger   *logrus.Logger
	Port     string
	Storage  *storage.Storage
	Missions mission.MissionService
	Notifier *notify.Notifier
	Status   status.Probe
	Gatherer prometheus.Gatherer
}

// Handler builds the router: /status and /metrics outside huma, the v1 API
// inside it.
func (r *Rest) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	statusHandler := status.NewHandler(r.Status)
	router.Get("/status", logging.LoggingWrapper("Status", r.Logger, statusHandler.Handler))
	if r.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(r.Gatherer, promhttp.HandlerOpts{}))
	}

	router.Group(func(v1 chi.Router) {
		v1.Use(logging.Middleware(r.Logger))

		api := humachi.New(v1, huma.DefaultConfig("Mission Server", "1.0.0"))
		mission.Register(api, r.Missions)
		realtime.NewStreamHandler(r.Notifier, r.Storage.Families, r.Logger).Register(api)
	})

	return router
}

// Serve listens until ctx is cancelled, then drains in-flight requests.
func (r *Rest) Serve(ctx context.Context) error {
	server := http.Server{
		Addr:              ":" + r.Port,
		Handler:           r.Handler(),
		ReadTimeout:       time.Duration(30) * time.Second,
		IdleTimeout:       time.Duration(10) * time.Second,
		ReadHeaderTimeout: time.Duration(10) * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		r.Logger.WithField("port", r.Port).Info("HttpServer.Serve.listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			r.Logger.WithError(err).Error("HttpServer.Serve.listen error")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	r.Logger.Info("HttpServer.Serve.shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		r.Logger.WithError(err).Error("HttpServer.Serve.shutdown error")
		return err
	}
	return nil
}
