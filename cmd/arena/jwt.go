package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var jwtSigningMethod = jwt.GetSigningMethod("RS256")

type AgentClaims struct {
	AgentId  int    `json:"agent_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func createAgentToken(agentId int, username string) (string, error) {
	lifetime := config.Jwt.TokenLifetime.Duration
	claims := AgentClaims{
		agentId,
		username,
		jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(lifetime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	return token.SignedString(jwtPrivateKey)
}

// The token is split across two cookies: header.payload stays readable
// to the frontend, the signature is http-only.
func setAgentCookies(w http.ResponseWriter, token string) {
	parts := strings.Split(token, ".")
	header, payload, signature := parts[0], parts[1], parts[2]
	jsCookie := http.Cookie{
		Name:     "auth",
		Path:     "/",
		Value:    header + "." + payload,
		Secure:   config.Production(),
		Expires:  time.Now().Add(config.Jwt.TokenLifetime.Duration),
		SameSite: config.HttpCookieSameSite(),
	}
	httpCookie := http.Cookie{
		Name:     "sign",
		Path:     "/",
		Value:    signature,
		Secure:   config.Production(),
		HttpOnly: true,
		SameSite: config.HttpCookieSameSite(),
	}
	http.SetCookie(w, &jsCookie)
	http.SetCookie(w, &httpCookie)
}

func refreshAgentCookies(w http.ResponseWriter, claims AgentClaims) {
	token, err := createAgentToken(claims.AgentId, claims.Username)
	if err != nil {
		log.Error("unable to refresh agent cookies: ", err)
		return
	}
	setAgentCookies(w, token)
}

func clearAgentCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth",
		Path:     "/",
		MaxAge:   -1,
		Secure:   config.Production(),
		SameSite: config.HttpCookieSameSite(),
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "sign",
		Path:     "/",
		MaxAge:   -1,
		Secure:   config.Production(),
		SameSite: config.HttpCookieSameSite(),
	})
}

func getJWTFromCookies(r *http.Request) (string, error) {
	authCookie, err := r.Cookie("auth")
	if err != nil {
		return "", err
	}
	signCookie, err := r.Cookie("sign")
	if err != nil {
		return "", err
	}
	return authCookie.Value + "." + signCookie.Value, nil
}

func getKey(t *jwt.Token) (interface{}, error) {
	return jwtPublicKey, nil
}

func tryParseJWTCookie(tokenString string) (*AgentClaims, error) {
	if token, err := jwt.ParseWithClaims(
		tokenString, &AgentClaims{}, getKey,
	); err != nil {
		return nil, err
	} else if claims, ok := token.Claims.(*AgentClaims); ok {
		return claims, nil
	} else {
		return nil, errors.New("unknown claims type")
	}
}
