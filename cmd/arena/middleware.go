package main

import (
	"context"
	"net/http"

	"github.com/rs/cors"
)

type Middleware func(http.Handler) http.Handler

func useMiddleware(s *http.ServeMux, mws ...Middleware) http.Handler {
	var h http.Handler = s
	for _, mw := range mws {
		h = mw(h)
	}
	return h
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *loggingResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func loggingMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Infof("--> %s %s", r.Method, r.URL.String())
		wrapped := &loggingResponseWriter{w, http.StatusOK}
		h.ServeHTTP(wrapped, r)
		code := wrapped.statusCode
		log.Infof("<-- %d %s", code, http.StatusText(code))
	})
}

func corsMiddleware(h http.Handler) http.Handler {
	options := cors.Options{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
	return cors.New(options).Handler(h)
}

type ctxKey int

const ctxAgentClaims ctxKey = iota

// authMiddleware parses the split auth cookies into claims when present.
// Requests without valid claims pass through anonymously; handlers that
// need an identity check the context themselves.
func authMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := getJWTFromCookies(r)
		if err != nil {
			h.ServeHTTP(w, r)
			return
		}
		claims, err := tryParseJWTCookie(tokenString)
		if err != nil {
			log.Debug("bad auth cookies: ", err)
			clearAgentCookies(w)
			h.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), ctxAgentClaims, claims)
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}
