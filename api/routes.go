package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	auth "github.com/abbot/go-http-auth"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hevy-insights/hevy-gateway/hevy"
)

type loginRequest struct {
	EmailOrUsername string `json:"emailOrUsername"`
	Password        string `json:"password"`
}

func (request loginRequest) Validate() error {
	return validation.ValidateStruct(&request,
		validation.Field(&request.EmailOrUsername, validation.Required),
		validation.Field(&request.Password, validation.Required),
	)
}

type validateTokenRequest struct {
	AuthToken string `json:"auth_token"`
}

type validateTokenResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type statusResponse struct {
	Status         string `json:"status"`
	Uptime         string `json:"uptime"`
	TrackedSources int    `json:"tracked_login_sources"`
}

type workoutsQuery struct {
	Username string
	Offset   int
}

func (query workoutsQuery) Validate() error {
	return validation.ValidateStruct(&query,
		validation.Field(&query.Username, validation.Required),
		validation.Field(&query.Offset, validation.Min(0)),
	)
}

// Exchange credentials for an upstream auth token.
//
// URL: `POST /api/login`
func (api *API) postLogin(w http.ResponseWriter, r *http.Request) {
	var request loginRequest

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Malformed request body.", http.StatusBadRequest)
		return
	}

	if err := request.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	client := hevy.NewClient("", api.upstream())

	user, err := client.Login(request.EmailOrUsername, request.Password)
	if err != nil {
		var hevyErr *hevy.Error

		if errors.As(err, &hevyErr) && hevyErr.Kind == hevy.KindInvalidCredentials {
			http.Error(w, hevyErr.Message, http.StatusUnauthorized)
		} else {
			log.Printf("Login failed: %s", err.Error())
			http.Error(w, "An unexpected error occurred.", http.StatusInternalServerError)
		}

		return
	}

	writeJSON(w, user)
}

// Check whether an auth token is still accepted by the upstream.
//
// Transport failures are reported in the response body rather than through
// the status code, so a flaky upstream looks the same to the web client as an
// expired token.
//
// URL: `POST /api/validate`
func (api *API) postValidate(w http.ResponseWriter, r *http.Request) {
	var request validateTokenRequest

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Malformed request body.", http.StatusBadRequest)
		return
	}

	client := hevy.NewClient(request.AuthToken, api.upstream())

	response := validateTokenResponse{}

	valid, err := client.ValidateToken()
	if err != nil {
		log.Printf("Token validation failed: %s", err.Error())
		response.Error = err.Error()
	}

	response.Valid = valid
	writeJSON(w, response)
}

// Return the authenticated user's account payload, untouched.
//
// URL: `GET /api/user/account`
func (api *API) getAccount(w http.ResponseWriter, r *http.Request) {
	client := hevy.NewClient(authToken(r), api.upstream())

	payload, err := client.GetAccount()
	if err != nil {
		api.writeUpstreamError(w, "account", err)
		return
	}

	writeRawJSON(w, payload)
}

// Return one page of the authenticated user's workout history, untouched.
//
// URL: `GET /api/workouts?offset=<offset>&username=<username>`
func (api *API) getWorkouts(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	offset := 0
	if raw := values.Get("offset"); len(raw) != 0 {
		var err error

		if offset, err = strconv.Atoi(raw); err != nil {
			http.Error(w, "Offset must be an integer.", http.StatusBadRequest)
			return
		}
	}

	query := workoutsQuery{
		Username: values.Get("username"),
		Offset:   offset,
	}

	if err := query.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	client := hevy.NewClient(authToken(r), api.upstream())

	payload, err := client.GetWorkouts(query.Username, query.Offset)
	if err != nil {
		api.writeUpstreamError(w, "workouts", err)
		return
	}

	writeRawJSON(w, payload)
}

// Report that the relay itself is up.
//
// URL: `GET /api/health`
func (api *API) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{Status: "healthy"})
}

// Operator-facing status report, protected by basic auth against the
// configured htpasswd file. Responds 404 when no htpasswd file is configured
// so the route does not advertise itself.
//
// URL: `GET /api/status`
func (api *API) getStatus(w http.ResponseWriter, r *http.Request) {
	authenticator := api.currentAuthenticator()

	if authenticator == nil {
		http.NotFound(w, r)
		return
	}

	authenticator.Wrap(api.serveStatus)(w, r)
}

func (api *API) serveStatus(w http.ResponseWriter, r *auth.AuthenticatedRequest) {
	writeJSON(w, statusResponse{
		Status:         "ok",
		Uptime:         time.Since(api.started).Round(time.Second).String(),
		TrackedSources: api.currentLimiter().Size(),
	})
}

// Map a client-wrapper failure onto a response status: unauthorized kinds
// become 401, everything else is a generic 500.
func (api *API) writeUpstreamError(w http.ResponseWriter, op string, err error) {
	var hevyErr *hevy.Error

	if errors.As(err, &hevyErr) && hevyErr.Kind == hevy.KindUnauthorized {
		http.Error(w, hevyErr.Message, http.StatusUnauthorized)
		return
	}

	log.Printf("Could not fetch %s: %s", op, err.Error())
	http.Error(w, "An unexpected error occurred.", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Could not serialize response: %s", err.Error())
		http.Error(w, "An unexpected error occurred.", http.StatusInternalServerError)
		return
	}

	writeRawJSON(w, response)
}

func writeRawJSON(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}
