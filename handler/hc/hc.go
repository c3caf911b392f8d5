package hc

import (
	"context"
	"net/http"
	"time"

	"lending/handler/render"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/twitchtv/twirp"
)

// Check reports a failing dependency
type Check func(ctx context.Context) error

// Handle serve uptime and version, unavailable while any check fails
func Handle(version string, checks ...Check) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.NoCache)
	r.Handle("/", handle(version, checks))
	return r
}

func handle(version string, checks []Check) http.HandlerFunc {
	started := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				render.Error(w, twirp.NewError(twirp.Unavailable, err.Error()))
				return
			}
		}

		render.JSON(w, render.H{
			"uptime":  time.Since(started).Truncate(time.Millisecond).String(),
			"version": version,
		})
	}
}
