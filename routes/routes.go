package routes

import (
	"net/http"
	"time"

	"github.com/Dosada05/fencing-club/handlers"
	"github.com/Dosada05/fencing-club/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type Handlers struct {
	Health       *handlers.HealthHandler
	Tournament   *handlers.TournamentHandler
	Match        *handlers.MatchHandler
	TeamMatch    *handlers.TeamMatchHandler
	Member       *handlers.MemberHandler
	Notification *handlers.NotificationHandler
	WebSocket    *handlers.WebSocketHandler
}

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	Logger         *zap.Logger
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Method(http.MethodGet, "/healthz", h.Health)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.JWTSecret, opts.Logger))

		// Websocket connections outlive any request timeout.
		r.Get("/ws/{topic}", h.WebSocket.ServeWs)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(15 * time.Second))

			r.Get("/gyms/{gymID}/members", h.Member.ListHandler)
			r.Get("/gyms/{gymID}/tournaments", h.Tournament.ListByGymHandler)

			r.Route("/tournaments", func(r chi.Router) {
				r.Post("/", h.Tournament.CreateHandler)
				r.Route("/{tournamentID}", func(r chi.Router) {
					r.Get("/", h.Tournament.GetByIDHandler)
					r.Get("/snapshot", h.Tournament.SnapshotHandler)
					r.Get("/standings", h.Tournament.StandingsHandler)
					r.Get("/rounds", h.Tournament.RoundsHandler)
					r.Post("/finalize", h.Tournament.FinalizeHandler)
					r.Post("/cancel", h.Tournament.CancelHandler)
				})
			})

			r.Post("/bouts", h.Match.CreateBoutHandler)
			r.Route("/matches/{matchID}", func(r chi.Router) {
				r.Get("/", h.Match.GetByIDHandler)
				r.Post("/result", h.Match.RecordResultHandler)
				r.Post("/approve", h.Match.ApproveHandler)
				r.Post("/reject", h.Match.RejectHandler)
				r.Post("/reset", h.Match.ResetHandler)
			})

			r.Route("/team-matches", func(r chi.Router) {
				r.Post("/", h.TeamMatch.CreateHandler)
				r.Route("/{teamMatchID}", func(r chi.Router) {
					r.Get("/", h.TeamMatch.GetByIDHandler)
					r.Post("/start", h.TeamMatch.StartHandler)
					r.Post("/pause", h.TeamMatch.PauseHandler)
					r.Post("/resume", h.TeamMatch.ResumeHandler)
					r.Post("/tick", h.TeamMatch.TickHandler)
					r.Post("/score", h.TeamMatch.ScoreHandler)
					r.Post("/end-bout", h.TeamMatch.EndBoutHandler)
					r.Post("/overtime-touch", h.TeamMatch.OvertimeTouchHandler)
					r.Post("/decide", h.TeamMatch.DecideHandler)
					r.Post("/cancel", h.TeamMatch.CancelHandler)
				})
			})

			r.Get("/me/bouts", h.Match.ListMyBoutsHandler)
			r.Get("/me/notifications", h.Notification.ListHandler)
			r.Post("/notifications/{notificationID}/read", h.Notification.MarkReadHandler)
		})
	})
}
