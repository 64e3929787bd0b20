package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

// Exercises the session lifecycle against a running instance: login,
// authenticated read, refresh rotation, logout, and post-logout rejection.
func main() {
	base := os.Getenv("LIBRIX_SMOKE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	email := envOr("LIBRIX_SMOKE_EMAIL", "reader@librix.local")
	password := envOr("LIBRIX_SMOKE_PASSWORD", "reader12345")

	client := &http.Client{Timeout: 5 * time.Second}

	var session struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	status := call(client, base, "POST", "/auth/login",
		map[string]string{"email": email, "password": password}, "", &session)
	if status != http.StatusOK {
		log.Fatalf("login: status %d", status)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		log.Fatal("login: empty tokens")
	}

	var me struct {
		Email string `json:"email"`
	}
	if status := call(client, base, "GET", "/auth/me", nil, session.AccessToken, &me); status != http.StatusOK {
		log.Fatalf("me: status %d", status)
	}
	if me.Email != email {
		log.Fatalf("me: email %q, want %q", me.Email, email)
	}

	old := session.RefreshToken
	status = call(client, base, "POST", "/auth/refresh",
		map[string]string{"refresh_token": old}, "", &session)
	if status != http.StatusOK {
		log.Fatalf("refresh: status %d", status)
	}
	if session.RefreshToken == old {
		log.Fatal("refresh: token was not rotated")
	}
	if status := call(client, base, "POST", "/auth/refresh",
		map[string]string{"refresh_token": old}, "", nil); status != http.StatusUnauthorized {
		log.Fatalf("stale refresh: status %d, want 401", status)
	}

	if status := call(client, base, "POST", "/auth/logout",
		map[string]string{"refresh_token": session.RefreshToken}, session.AccessToken, nil); status != http.StatusOK {
		log.Fatalf("logout: status %d", status)
	}
	if status := call(client, base, "POST", "/auth/refresh",
		map[string]string{"refresh_token": session.RefreshToken}, "", nil); status != http.StatusUnauthorized {
		log.Fatalf("refresh after logout: status %d, want 401", status)
	}

	fmt.Println("session smoke test passed")
}

func call(client *http.Client, base, method, path string, body any, token string, out any) int {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatalf("encode %s: %v", path, err)
		}
	}
	req, err := http.NewRequest(method, base+path, &buf)
	if err != nil {
		log.Fatalf("request %s: %v", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("call %s: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
