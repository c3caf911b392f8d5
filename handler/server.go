package handler

import (
	"net/http"

	"lending/core"
	"lending/handler/auth"
	"lending/handler/hc"
	"lending/handler/rest"

	"github.com/fox-one/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Config server config
type Config struct {
	Version    string
	RateModels map[string]core.IRateModel
	Checks     []hc.Check
}

// Server server
type Server struct {
	cfg      Config
	ledger   core.ILedgerService
	balances core.WalletStore
	session  core.Session
}

// New new server function
func New(cfg Config, ledger core.ILedgerService, balances core.WalletStore, session core.Session) Server {
	return Server{
		cfg:      cfg,
		ledger:   ledger,
		balances: balances,
		session:  session,
	}
}

// Handler health check, metrics and the restful api behind the common middlewares
func (s Server) Handler() http.Handler {
	mux := chi.NewMux()
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(cors.AllowAll().Handler)
	mux.Use(logger.WithRequestID)
	mux.Use(middleware.Logger)
	mux.Use(middleware.NewCompressor(5).Handler)

	mux.Mount("/hc", hc.Handle(s.cfg.Version, s.cfg.Checks...))
	mux.Mount("/metrics", promhttp.Handler())
	mux.Mount("/api", s.HandleRestAPI())

	return mux
}

// HandleRestAPI handle restful apis, the acting account comes from the bearer token
func (s Server) HandleRestAPI() http.Handler {
	r := chi.NewRouter()
	r.Use(auth.HandleAuthentication(s.session))
	r.Mount("/", rest.Handle(s.ledger, s.balances, s.cfg.RateModels))
	return r
}
