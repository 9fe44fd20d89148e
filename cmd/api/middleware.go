package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

type contextKey string

const userIDKey contextKey = "user_id"

// bearerIdentity extracts the acting user from "Authorization: Bearer <id>".
// Real authentication is an external collaborator; this middleware only
// establishes identity for the authorization checks downstream.
func bearerIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized: no Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Unauthorized: invalid Authorization format", http.StatusUnauthorized)
			return
		}

		userID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || userID <= 0 {
			http.Error(w, "Unauthorized: invalid user identity", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}
