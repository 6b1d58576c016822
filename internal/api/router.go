// Package api exposes the application over HTTP: availability and
// booking operations for the UI, plus thin proxy routes for the meeting
// and email providers.
package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutorlane/server/internal/auth"
	"github.com/tutorlane/server/internal/client"
	"github.com/tutorlane/server/internal/service"
	"github.com/tutorlane/server/internal/session"
)

type API struct {
	availability *service.AvailabilityService
	bookings     *service.BookingService
	feedback     *service.FeedbackService
	sessions     *session.Registry
	meetings     *client.MeetingClient
	email        *client.EmailClient
	validate     *validator.Validate
	logger       *zap.Logger
}

func New(
	availability *service.AvailabilityService,
	bookings *service.BookingService,
	feedback *service.FeedbackService,
	sessions *session.Registry,
	meetings *client.MeetingClient,
	email *client.EmailClient,
	logger *zap.Logger,
) *API {
	return &API{
		availability: availability,
		bookings:     bookings,
		feedback:     feedback,
		sessions:     sessions,
		meetings:     meetings,
		email:        email,
		validate:     validator.New(),
		logger:       logger,
	}
}

// Router assembles the full HTTP surface.
func (a *API) Router(authSecret, corsOrigins string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(corsOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Provider proxies, mirroring the upstream serverless routes.
	r.Post("/api/zoom", a.proxyCreateMeeting)
	r.Get("/api/zoom-artifact", a.proxyMeetingArtifact)
	r.Post("/api/send-email", a.proxySendEmail)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(authSecret))

		r.Get("/teachers/{teacherID}/availability", a.getAvailability)
		r.Put("/teachers/{teacherID}/availability", a.mergeAvailability)
		r.Post("/teachers/{teacherID}/availability/series", a.addAvailabilitySeries)
		r.Delete("/teachers/{teacherID}/availability", a.removeAvailability)

		r.Post("/bookings", a.createBooking)
		r.Get("/bookings", a.listBookings)
		r.Delete("/bookings/{bookingID}", a.cancelBooking)
		r.Post("/bookings/{bookingID}/feedback", a.addFeedback)
		r.Put("/bookings/{bookingID}/feedback", a.updateFeedback)

		r.Get("/profile", a.getProfile)
		r.Patch("/profile", a.updateProfile)
		r.Delete("/session", a.teardownSession)
	})

	return r
}
