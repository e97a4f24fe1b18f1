package main

import "net/http"

func buildHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/register", handleRegister)
	mux.HandleFunc("POST /v1/login", handleLogin)
	mux.HandleFunc("POST /v1/logout", handleLogout)

	mux.HandleFunc("GET /v1/status", handleStatus)
	mux.HandleFunc("GET /v1/records", handleGetRecords)
	mux.HandleFunc("GET /v1/verify", handleVerify)

	mux.HandleFunc("POST /v1/match", handleNewMatch)
	mux.HandleFunc("GET /v1/match", handleListMatches)
	mux.HandleFunc("GET /v1/match/{id}", handleGetMatch)
	mux.HandleFunc("GET /v1/match/{id}/history", handleGetHistory)
	mux.HandleFunc("POST /v1/match/{id}/join", handleJoinMatch)
	mux.HandleFunc("POST /v1/match/{id}/cancel", handleCancelMatch)
	mux.HandleFunc("POST /v1/match/{id}/move", handleSubmitMove)

	mux.HandleFunc("/v1/match/{id}/connect", handleConnectWs)

	handler := useMiddleware(mux,
		corsMiddleware,
		authMiddleware,
		loggingMiddleware,
	)

	return handler
}
