package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clinicore/clinic-scheduling/internal/appointment"
	"github.com/clinicore/clinic-scheduling/internal/prescription"
	"github.com/clinicore/clinic-scheduling/internal/query"
)

type RouterConfig struct {
	Scheduler *appointment.Service
	Guard     *prescription.Guard
	Engine    *query.Engine
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Mongo     *mongo.Client
	JWTSecret string
	Env       string
	Version   string
	Logger    zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Mongo, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Everything else requires a verified identity
	r.Group(func(r chi.Router) {
		r.Use(IdentityMiddleware(cfg.JWTSecret))

		r.Post("/appointments", bookAppointmentHandler(cfg.Scheduler))
		r.Get("/appointments", listAppointmentsHandler(cfg.Scheduler))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Scheduler))
		r.Post("/appointments/{id}/status", transitionHandler(cfg.Scheduler))

		r.Get("/doctors/{id}/free-slots", freeSlotsHandler(cfg.Scheduler))

		r.Post("/appointments/{id}/prescription", attachPrescriptionHandler(cfg.Guard))
		r.Get("/appointments/{id}/prescription", getPrescriptionHandler(cfg.Guard))
		r.Patch("/prescriptions/{id}", updatePrescriptionHandler(cfg.Guard))

		r.Get("/search/appointments", searchAppointmentsHandler(cfg.Engine))
		r.Get("/search/prescriptions", searchPrescriptionsHandler(cfg.Engine))
	})

	return r
}
