/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := signToken("secret", "alice", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sub, err := verifyToken("secret", tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sub != "alice" {
		t.Fatalf("subject = %q, want alice", sub)
	}
}

func TestVerifyToken_Rejections(t *testing.T) {
	good, err := signToken("secret", "alice", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	expired, err := signToken("secret", "alice", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign expired: %v", err)
	}
	cases := []struct {
		name   string
		secret string
		token  string
	}{
		{"wrong secret", "other", good},
		{"expired", "secret", expired},
		{"garbage", "secret", "not-a-token"},
		{"empty", "secret", ""},
		{"bad payload", "secret", "!!!.AAAA"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := verifyToken(tc.secret, tc.token); err == nil {
				t.Fatalf("expected rejection")
			}
		})
	}
}

func TestWithAuth(t *testing.T) {
	h := withAuth("secret", func(w http.ResponseWriter, r *http.Request, subject string) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(subject))
	})

	// No header
	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/api/stories", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("no header: code = %d, want 401", rr.Code)
	}

	// Valid bearer token
	tok, err := signToken("secret", "bob", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/stories", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr = httptest.NewRecorder()
	h(rr, req)
	if rr.Code != http.StatusOK || rr.Body.String() != "bob" {
		t.Fatalf("valid token: code = %d body = %q", rr.Code, rr.Body.String())
	}

	// Tampered token
	req = httptest.NewRequest(http.MethodGet, "/api/stories", nil)
	req.Header.Set("Authorization", "Bearer "+tok+"x")
	rr = httptest.NewRecorder()
	h(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("tampered token: code = %d, want 401", rr.Code)
	}
}

func TestTokenEndpoint(t *testing.T) {
	srv := &Server{Secret: "endpoint-secret"}
	mux := srv.routes()

	body := strings.NewReader(`{"subject":"ci","ttl_seconds":60}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", body)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
	var resp struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expires_at"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	sub, err := verifyToken("endpoint-secret", resp.Token)
	if err != nil {
		t.Fatalf("verify minted token: %v", err)
	}
	if sub != "ci" {
		t.Fatalf("subject = %q, want ci", sub)
	}
	if resp.ExpiresAt == "" {
		t.Fatalf("missing expires_at")
	}

	// GET is not allowed
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/auth/token", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET code = %d, want 405", rr.Code)
	}
}

func TestRoutes_NoDatabaseNeeded(t *testing.T) {
	srv := &Server{Secret: "x"}
	mux := srv.routes()

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz: code = %d body = %q", rr.Code, rr.Body.String())
	}

	t.Setenv("FFLOW_VERSION", "")
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/version", nil))
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Body.String(), "fflow-registry ") {
		t.Fatalf("version: code = %d body = %q", rr.Code, rr.Body.String())
	}

	// Story routes stay behind the token gate.
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/stories", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list: code = %d, want 401", rr.Code)
	}
}
