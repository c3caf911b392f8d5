package codes

import (
	"errors"
	"strconv"

	"lending/core"

	"github.com/twitchtv/twirp"
)

const (
	// CustomCodeKey code key
	CustomCodeKey = "custom_code"

	// InvalidArguments invalid arguments
	InvalidArguments = 100001
)

// With with specified error
func With(err error, code int) twirp.Error {
	var twerr twirp.Error
	if !errors.As(err, &twerr) {
		twerr = twirp.InternalErrorWith(err)
	}

	return twerr.WithMeta(CustomCodeKey, strconv.Itoa(code))
}

// From convert a ledger error to a twirp error carrying the ledger code
func From(err error) twirp.Error {
	var twerr twirp.Error
	if errors.As(err, &twerr) {
		return twerr
	}

	code := core.CodeOf(err)
	if code == core.ErrUnknown {
		return twirp.InternalErrorWith(err)
	}

	twcode := twirpCode(code)
	if errors.Is(err, core.ErrValidation.With(core.ReasonMarketNotCreated)) {
		twcode = twirp.NotFound
	}

	return twirp.NewError(twcode, err.Error()).
		WithMeta(CustomCodeKey, code.String())
}

func twirpCode(code core.ErrorCode) twirp.ErrorCode {
	switch code {
	case core.ErrUnauthorized:
		return twirp.PermissionDenied
	case core.ErrValidation:
		return twirp.InvalidArgument
	case core.ErrInsufficientLiquidity, core.ErrHealthCheckFailed:
		return twirp.FailedPrecondition
	case core.ErrStalePrice, core.ErrInvalidPrice:
		return twirp.Unavailable
	case core.ErrArithmetic:
		return twirp.OutOfRange
	case core.ErrConflict:
		return twirp.Aborted
	default:
		return twirp.Internal
	}
}

// Get get error code, the custom code when set
func Get(err twirp.Error) int {
	if v, err := strconv.Atoi(err.Meta(CustomCodeKey)); err == nil {
		return v
	}

	switch err.Code() {
	case twirp.InvalidArgument:
		return InvalidArguments
	default:
		return twirp.ServerHTTPStatusFromErrorCode(err.Code())
	}
}
