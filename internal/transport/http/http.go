package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/registration/internal/connectivity"
	"github.com/corray333/backend-labs/registration/internal/service/models/person"
	"github.com/corray333/backend-labs/registration/internal/service/models/submission"
	"github.com/corray333/backend-labs/registration/internal/service/services/registrationsvc"
	"github.com/corray333/backend-labs/registration/internal/service/services/usersvc"
	connectivityhandler "github.com/corray333/backend-labs/registration/internal/transport/http/connectivity"
	listusers "github.com/corray333/backend-labs/registration/internal/transport/http/list_users"
	registerperson "github.com/corray333/backend-labs/registration/internal/transport/http/register_person"
	"github.com/corray333/backend-labs/registration/internal/transport/http/submissions"
	"github.com/corray333/backend-labs/registration/pkg/http/middleware/trace"
	"github.com/corray333/backend-labs/registration/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
)

type registrationService interface {
	Register(ctx context.Context, p person.Person) (registrationsvc.Result, error)
	Submission(ctx context.Context, id string) (submission.Submission, error)
	Submissions(ctx context.Context, limit int) ([]submission.Submission, error)
}

type userService interface {
	ListUsers(ctx context.Context) (usersvc.ListResult, error)
}

type observer interface {
	Online() bool
	Since() time.Time
	Subscribe(l connectivity.Listener) func()
}

type HTTPTransport struct {
	server       *http.Server
	router       *chi.Mux
	registration registrationService
	users        userService
	observer     observer
	queues       []connectivityhandler.Queue
}

func NewHTTPTransport(
	registration registrationService,
	users userService,
	obs observer,
	queues ...connectivityhandler.Queue,
) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	return &HTTPTransport{
		server:       server,
		router:       router,
		registration: registration,
		users:        users,
		observer:     obs,
		queues:       queues,
	}
}

// Handler returns the router, for tests.
func (h *HTTPTransport) Handler() http.Handler {
	return h.router
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Handle("/metrics", promhttp.Handler())

	h.router.Route("/api", func(r chi.Router) {
		r.Post("/persons/register", h.register)
		r.Get("/persons", h.listUsers)
		r.Get("/submissions", h.listSubmissions)
		r.Get("/submissions/{id}", h.getSubmission)
		r.Get("/connectivity", h.connectivityStatus)
		r.Get("/connectivity/ws", h.connectivityStream)
	})
}

func (h *HTTPTransport) register(w http.ResponseWriter, r *http.Request) {
	registerperson.Register(w, r, h.registration)
}

func (h *HTTPTransport) listUsers(w http.ResponseWriter, r *http.Request) {
	listusers.ListUsers(w, r, h.users)
}

func (h *HTTPTransport) listSubmissions(w http.ResponseWriter, r *http.Request) {
	submissions.List(w, r, h.registration)
}

func (h *HTTPTransport) getSubmission(w http.ResponseWriter, r *http.Request) {
	submissions.Get(w, r, h.registration)
}

func (h *HTTPTransport) connectivityStatus(w http.ResponseWriter, r *http.Request) {
	connectivityhandler.Status(w, r, h.observer, h.queues)
}

func (h *HTTPTransport) connectivityStream(w http.ResponseWriter, r *http.Request) {
	connectivityhandler.Stream(w, r, h.observer)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:              "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
