package handlers

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/mcsstheme/internal/models"
	"github.com/jmylchreest/mcsstheme/internal/theme"
)

// mapError converts service errors to HTTP errors. Missing themes,
// snapshots and tokens are 404; themes that cannot be evaluated are 422.
func mapError(msg string, err error) error {
	var verr models.ErrValidation
	switch {
	case errors.As(err, &verr):
		return huma.Error400BadRequest(verr.Message, err)
	case errors.Is(err, models.ErrThemeNotFound),
		errors.Is(err, models.ErrSnapshotNotFound):
		return huma.Error404NotFound(msg, err)
	case errors.Is(err, theme.ErrUndefinedToken):
		var undef *theme.UndefinedTokenError
		if errors.As(err, &undef) && undef.ReferencedBy != "" {
			// A dangling reference inside the theme, not a missing resource.
			return huma.Error422UnprocessableEntity(msg, err)
		}
		var schemaErr *theme.SchemaError
		if errors.As(err, &schemaErr) {
			return huma.Error422UnprocessableEntity(msg, err)
		}
		return huma.Error404NotFound(msg, err)
	case errors.Is(err, theme.ErrMalformedValue),
		errors.Is(err, theme.ErrCyclicDependency):
		return huma.Error422UnprocessableEntity(msg, err)
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}
