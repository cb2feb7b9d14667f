package middleware

import (
	"mime"
	"net/http"

	"github.com/alertarea/alertarea/internal/api/models"
)

// ContentTypeJSON defaults the response Content-Type to
// application/json, leaving it alone when a handler already set one.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// RequireJSON rejects bodied requests whose declared media type is not
// application/json. Requests without a Content-Type header pass, since
// several lifecycle endpoints take no body.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if ct := r.Header.Get("Content-Type"); ct != "" {
				media, _, err := mime.ParseMediaType(ct)
				if err != nil || media != "application/json" {
					problem := models.NewProblem(models.ProblemTypeValidation,
						"Unsupported media type", http.StatusUnsupportedMediaType,
						GetRequestID(r.Context()))
					problem.Detail = "Content-Type must be application/json"
					problem.Instance = r.URL.Path
					problem.Write(w)
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
