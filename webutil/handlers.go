package webutil

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
)

// AppHandler is a handler function that returns an error.
type AppHandler func(w http.ResponseWriter, r *http.Request) error

// MakeHandler adapts an AppHandler to the standard http.HandlerFunc
// signature, converting returned errors into JSON error responses.
// sql.ErrNoRows from the datastore layer maps to 404.
func MakeHandler(handler AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := handler(w, r)
		if err == nil {
			return
		}

		var httpErr *HTTPError
		var statusCode int
		var publicMessage string

		switch {
		case errors.As(err, &httpErr):
			statusCode = httpErr.Code
			publicMessage = httpErr.Message
			if cause := errors.Unwrap(httpErr); cause != nil && cause.Error() != publicMessage {
				log.Printf("WARN (HTTP): %d %s on %s %s: %v", statusCode, publicMessage, r.Method, r.URL.Path, cause)
			} else {
				log.Printf("WARN (HTTP): %d %s on %s %s", statusCode, publicMessage, r.Method, r.URL.Path)
			}

		case errors.Is(err, sql.ErrNoRows):
			statusCode = http.StatusNotFound
			publicMessage = msgNotFound
			log.Printf("INFO (HTTP): Resource not found on %s %s: %v", r.Method, r.URL.Path, err)

		default:
			statusCode = http.StatusInternalServerError
			publicMessage = msgInternalServer
			log.Printf("ERROR (HTTP): Unhandled error on %s %s: %v", r.Method, r.URL.Path, err)
		}

		RespondWithJSON(w, statusCode, map[string]string{"error": publicMessage})
	}
}
