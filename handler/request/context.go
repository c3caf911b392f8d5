package request

import (
	"context"
	"net/http"

	"lending/handler/render"

	"github.com/twitchtv/twirp"
)

type key int

const (
	accountKey key = iota
)

// WithAccount context with account
func WithAccount(ctx context.Context, account string) context.Context {
	return context.WithValue(ctx, accountKey, account)
}

// AccountFrom account set by WithAccount
func AccountFrom(ctx context.Context) (string, bool) {
	account, ok := ctx.Value(accountKey).(string)
	return account, ok && account != ""
}

// RequireAccount reject requests the authentication middleware left anonymous
func RequireAccount(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		if _, ok := AccountFrom(r.Context()); !ok {
			render.Error(w, twirp.NewError(twirp.Unauthenticated, "authentication required"))
			return
		}

		next.ServeHTTP(w, r)
	}

	return http.HandlerFunc(fn)
}
