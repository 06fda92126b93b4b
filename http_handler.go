package kernel

import (
	"errors"
	"net/http"
)

// NewHTTPHandler serves HTTP requests by dispatching them through app.
// Routing misses become a 404 response and any other dispatch failure a
// 500; the error text is only shown in debug.
func NewHTTPHandler(app *App) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, err := app.Dispatch(r.Context(), NewRequest(r))
		if err != nil {
			writeDispatchError(app, w, r, err)
			return
		}
		if err := resp.Send(w); err != nil {
			app.Logger().Warn("Failed to write response", "path", r.URL.Path, "error", err)
		}
	})
}

func writeDispatchError(app *App, w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, ErrRouteNotFound) || errors.Is(err, ErrNotFoundPageUnavailable) {
		status = http.StatusNotFound
	}
	app.Logger().Error("Dispatch failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)

	body := http.StatusText(status)
	if app.Debug() {
		body = err.Error()
	}
	http.Error(w, body, status)
}
