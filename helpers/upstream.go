package helpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Fixed identities served by the fake upstream.
const (
	UpstreamUsername = "gymrat"
	UpstreamEmail    = "gymrat@example.com"
	UpstreamPassword = "deadlift-pr-405"
	UpstreamToken    = "c0ffee-token"
	UpstreamUserID   = "user-1234"
)

// Create a fake Hevy API server implementing the four upstream endpoints.
//
// Login accepts `UpstreamUsername` or `UpstreamEmail` with
// `UpstreamPassword` and issues `UpstreamToken`. Authenticated endpoints
// accept only `UpstreamToken`. The caller is responsible for shutting down
// the server.
func CreateFakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			EmailOrUsername string `json:"emailOrUsername"`
			Password        string `json:"password"`
		}

		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		knownUser := body.EmailOrUsername == UpstreamUsername ||
			body.EmailOrUsername == UpstreamEmail

		if !knownUser || body.Password != UpstreamPassword {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"auth_token": "%s", "user_id": "%s"}`,
			UpstreamToken, UpstreamUserID)
	})

	mux.HandleFunc("/validate_auth_token", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			AuthToken string `json:"authToken"`
		}

		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AuthToken != UpstreamToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/user/account", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("auth-token") != UpstreamToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id": "%s", "username": "%s", "email": "%s"}`,
			UpstreamUserID, UpstreamUsername, UpstreamEmail)
	})

	mux.HandleFunc("/user_workouts_paged", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("auth-token") != UpstreamToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		offset := r.URL.Query().Get("offset")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"offset": %s, "workouts": [{"id": "w-1"}, {"id": "w-2"}]}`,
			offset)
	})

	return httptest.NewServer(mux)
}
