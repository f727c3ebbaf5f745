package routes

import (
	"net/http"

	"github.com/AnshRaj112/talkback-backend/internal/handlers"
	"github.com/AnshRaj112/talkback-backend/internal/logger"
	"github.com/AnshRaj112/talkback-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Items     *handlers.ItemHandler
	Public    *handlers.PublicHandler
	Codegen   *handlers.CodegenHandler
	Relay     *handlers.RelayHandler
	Dashboard *handlers.DashboardHandler
}

type Options struct {
	AllowedOrigins []string
	Production     bool
	AllowedHost    string
	Sessions       middleware.Authenticator
	// WindowLimit is the shared Redis limiter for the app API. Nil disables it.
	WindowLimit func(http.Handler) http.Handler
	Log         *logger.Logger
}

// New builds the full router. The relay and code generation endpoints sit
// behind the permissive relay CORS policy; everything else uses the
// allow-list.
func New(h Handlers, opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(log))
	if opts.Production {
		for _, mw := range middleware.ProductionSecurity(opts.AllowedHost) {
			r.Use(mw)
		}
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	relay := chi.NewRouter()
	relay.Use(middleware.RelayCORS())
	relay.Post("/", h.Relay.Forward)
	relay.Options("/", handlers.Preflight)
	r.Mount("/relay", relay)

	codes := chi.NewRouter()
	codes.Use(middleware.RelayCORS())
	codes.Post("/generate", h.Codegen.Generate)
	codes.Options("/generate", handlers.Preflight)
	r.Mount("/api/codes", codes)

	r.Mount("/", appRouter(h, opts))
	return r
}

func appRouter(h Handlers, opts Options) http.Handler {
	app := chi.NewRouter()
	app.Use(middleware.CORS(opts.AllowedOrigins))
	if opts.WindowLimit != nil {
		app.Use(opts.WindowLimit)
	}
	session := middleware.RequireSession(opts.Sessions)

	app.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", h.Auth.SignUp)
		r.With(middleware.SignInLimit()).Post("/signin", h.Auth.SignIn)
		r.With(session).Post("/signout", h.Auth.SignOut)
		r.With(session).Get("/me", h.Auth.Me)
	})

	app.Route("/api/items", func(r chi.Router) {
		r.Use(session)
		r.Post("/", h.Items.Create)
		r.Get("/", h.Items.List)
		r.Get("/{id}", h.Items.Get)
		r.Post("/{id}/code", h.Items.RegenerateCode)
		r.Get("/{id}/code.{format}", h.Items.DownloadCode)
		r.Post("/{id}/share", h.Items.Share)
		r.Get("/{id}/events", h.Items.Events)
	})

	app.Get("/f/{slug}", h.Public.GetForm)
	app.With(middleware.FeedbackSubmitLimit()).Post("/f/{slug}", h.Public.Submit)
	app.Get("/feedback/{slug}", h.Public.Results)

	app.Get("/ws/dashboard", h.Dashboard.Serve)
	return app
}
