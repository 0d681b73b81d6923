package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentalcore/internal/api"
	"rentalcore/internal/approval"
	"rentalcore/internal/booking"
	"rentalcore/internal/claim"
	"rentalcore/internal/hold"
	"rentalcore/internal/notify"
	"rentalcore/pkg/config"
)

type Dependencies struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Notify *notify.Dispatcher
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	bookingRepo := booking.NewRepository(deps.DB)
	claimRepo := claim.NewRepository(deps.DB)

	bookingHandlers := booking.Handlers{
		DB:       deps.DB,
		Bookings: bookingRepo,
		Notify:   deps.Notify,
		Policy:   deps.Cfg.Policy,
	}
	approvalHandlers := approval.Handlers{DB: deps.DB, Notify: deps.Notify}
	holdHandlers := hold.Handlers{DB: deps.DB, Notify: deps.Notify}
	claimHandlers := claim.Handlers{
		DB:       deps.DB,
		Claims:   claimRepo,
		Bookings: bookingRepo,
		Notify:   deps.Notify,
		Policy:   deps.Cfg.Policy,
	}

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(api.ActorAuth(deps.Cfg))

			// Reservation lifecycle
			r.With(api.RequireRole(api.RoleGuest)).Post("/bookings", bookingHandlers.Create)
			r.With(api.RequireRole(api.RoleFleet)).Get("/bookings", bookingHandlers.List)
			r.Get("/bookings/{id}", bookingHandlers.Get)
			r.Post("/bookings/{id}/cancel", bookingHandlers.Cancel)
			r.With(api.RequireRole(api.RoleHost, api.RoleGuest)).Post("/bookings/{id}/trip-start", bookingHandlers.StartTrip)
			r.With(api.RequireRole(api.RoleHost, api.RoleGuest)).Post("/bookings/{id}/trip-end", bookingHandlers.EndTrip)
			r.With(api.RequireRole(api.RoleFleet, api.RoleHost)).Post("/bookings/{id}/complete", bookingHandlers.Complete)
			r.With(api.RequireRole(api.RoleFleet)).Post("/bookings/{id}/deposit-release", bookingHandlers.ReleaseDeposit)

			// Two-tier approval pipeline
			r.With(api.RequireRole(api.RoleFleet)).Post("/bookings/{id}/fleet-approval", approvalHandlers.ApproveFleet)
			r.With(api.RequireRole(api.RoleFleet)).Post("/bookings/{id}/fleet-rejection", approvalHandlers.RejectFleet)
			r.With(api.RequireRole(api.RoleHost, api.RoleFleet)).Post("/bookings/{id}/host-approval", approvalHandlers.ApproveHost)

			// Verification hold
			r.With(api.RequireRole(api.RoleFleet)).Post("/bookings/{id}/verification-request", holdHandlers.RequestDocuments)
			r.With(api.RequireRole(api.RoleFleet)).Post("/bookings/{id}/verification-release", holdHandlers.Release)

			// Claims
			r.With(api.RequireRole(api.RoleHost, api.RoleGuest)).Post("/bookings/{id}/claims", claimHandlers.File)
			r.Get("/bookings/{id}/claims", claimHandlers.ListByBooking)
			r.Get("/claims/{id}", claimHandlers.Get)
			r.With(api.RequireRole(api.RoleGuest)).Post("/claims/{id}/response", claimHandlers.SubmitResponse)
			r.With(api.RequireRole(api.RoleFleet)).Post("/claims/{id}/resolution", claimHandlers.Resolve)

			// Operator activity feed
			r.With(api.RequireRole(api.RoleFleet)).Get("/bookings/{id}/activity", bookingHandlers.Activity)
		})

		// Public guest portal: token-based claim response reached from the
		// notification email, served to a separate frontend domain.
		r.Route("/portal", func(r chi.Router) {
			r.Use(api.CORSMiddleware(api.CORSOptions{
				AllowedOrigins: deps.Cfg.PortalAllowedOrigins,
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type"},
				MaxAgeSeconds:  600,
			}))
			r.Post("/claims/{token}/response", claimHandlers.SubmitResponseByToken)
		})
	})

	return r
}
