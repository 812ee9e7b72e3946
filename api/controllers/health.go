package controllers

import (
	"context"
	"net/http"

	"github.com/mdnaeem95/hbbtool-sub002/api/responses"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/config"
	pkgerrors "github.com/mdnaeem95/hbbtool-sub002/pkg/errors"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/logger"
)

const envHeader = "X-HBB-Env"

// Pinger is the health check surface shared by the backing dependencies.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the backing dependencies. Redis and pubsub are
// optional; a nil pinger is skipped rather than reported unhealthy.
func HealthReady(cfg *config.Config, logg *logger.Logger, pingers map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := map[string]string{}
		for name, p := range pingers {
			if p == nil {
				continue
			}
			if err := p.Ping(r.Context()); err != nil {
				checks[name] = "unavailable"
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").WithDetails(checks))
				return
			}
			checks[name] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
