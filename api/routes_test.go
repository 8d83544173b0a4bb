package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hevy-insights/hevy-gateway/api"
	"github.com/hevy-insights/hevy-gateway/config"
	"github.com/hevy-insights/hevy-gateway/helpers"
)

// Build an API instance against the given upstream URL.
func testAPI(t *testing.T, upstreamURL string) (*api.API, *config.Config) {
	t.Helper()

	cfg := helpers.CreateTestConfig(t, upstreamURL)

	handler, err := api.New(cfg)
	assert.Nil(t, err)

	return handler, cfg
}

// Make a request against the given handler, optionally with an auth-token
// header.
func testRoute(t *testing.T, handler *api.API, method, url, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	request := httptest.NewRequest(method, url, reader)

	if token != "" {
		request.Header.Set(api.AuthTokenHeader, token)
	}

	response := httptest.NewRecorder()
	handler.ServeHTTP(response, request)

	return response
}

func TestHealthAPI(t *testing.T) {
	assert := assert.New(t)

	server := helpers.CreateFakeUpstream(t)
	defer server.Close()

	handler, _ := testAPI(t, server.URL)

	response := testRoute(t, handler, "GET", "/api/health", "", "")
	assert.Equal(http.StatusOK, response.Code)

	var health map[string]string
	assert.Nil(json.Unmarshal(response.Body.Bytes(), &health))
	assert.Equal("healthy", health["status"])
}

func TestLoginAPI(t *testing.T) {
	assert := assert.New(t)

	server := helpers.CreateFakeUpstream(t)
	defer server.Close()

	handler, _ := testAPI(t, server.URL)

	body := fmt.Sprintf(`{"emailOrUsername": "%s", "password": "%s"}`,
		helpers.UpstreamUsername, helpers.UpstreamPassword)

	response := testRoute(t, handler, "POST", "/api/login", "", body)
	assert.Equal(http.StatusOK, response.Code)

	var parsed map[string]string
	assert.Nil(json.Unmarshal(response.Body.Bytes(), &parsed))
	assert.Equal(helpers.UpstreamToken, parsed["auth_token"])
	assert.Equal(helpers.UpstreamUserID, parsed["user_id"])
	assert.Equal(helpers.UpstreamUsername, parsed["username"])

	// Logging in with an email populates email instead of username.
	body = fmt.Sprintf(`{"emailOrUsername": "%s", "password": "%s"}`,
		helpers.UpstreamEmail, helpers.UpstreamPassword)

	response = testRoute(t, handler, "POST", "/api/login", "", body)
	assert.Equal(http.StatusOK, response.Code)

	parsed = nil
	assert.Nil(json.Unmarshal(response.Body.Bytes(), &parsed))
	assert.Equal(helpers.UpstreamEmail, parsed["email"])
	assert.NotContains(parsed, "username")
}

func TestLoginAPIInvalidCredentials(t *testing.T) {
	assert := assert.New(t)

	server := helpers.CreateFakeUpstream(t)
	defer server.Close()

	handler, _ := testAPI(t, server.URL)

	body := fmt.Sprintf(`{"emailOrUsername": "%s", "password": "wrong"}`,
		helpers.UpstreamUsername)

	response := testRoute(t, handler, "POST", "/api/login", "", body)
	assert.Equal(http.StatusUnauthorized, response.Code)
}

func TestLoginAPIBadRequests(t *testing.T) {
	assert := assert.New(t)

	server := helpers.CreateFakeUpstream(t)
	defer server.Close()

	handler, _ := testAPI(t, server.URL)

	// Unparseable body.
	response := testRoute(t, handler, "POST", "/api/login", "", "not json")
	assert.Equal(http.StatusBadRequest, response.Code)

	// Missing password.
	body := fmt.Sprintf(`{"emailOrUsername": "%s"}`, helpers.UpstreamUsername)
	response = testRoute(t, handler, "POST", "/api/login", "", body)
	assert.Equal(http.StatusBadRequest, response.Code)
}

func TestLoginAPIUpstreamDown(t *testing.T) {
	assert := assert.New(t)

	server := helpers.CreateFakeUpstream(t)
	url := server.URL
	server.Close()

	handler, _ := testAPI(t, url)

	body := fmt.Sprintf(`{"emailOrUsername": "%s", "password": "%s"}`,
		helpers.UpstreamUsername, helpers.UpstreamPassword)

	response := testRoute(t, handler, "POST", "/api/login", "", body)
	assert.Equal(http.StatusInternalServerError, response.Code)
}

func TestLoginAPIRateLimit(t *testing.T) {
	assert := assert.New(t)

	server := helpers.CreateFakeUpstream(t)
	defer server.Close()

	handler, _ := testAPI(t, server.URL)

	body := fmt.Sprintf(`{"emailOrUsername": "%s", "password": "%s"}`,
		helpers.UpstreamUsername, helpers.UpstreamPassword)

	// httptest.NewRequest gives every request the same source address, so
	// these all count against one window.
	for i := 0; i < 5; i++ {
		response := testRoute(t, handler, "POST", "/api/login", "", body)
		assert.Equal(http.StatusOK, response.Code)
	}

	// The sixth attempt is rejected even though the credentials are correct.
	response := testRoute(t, handler, "POST", "/api/login", "", body)
	assert.Equal(http.StatusTooManyRequests, response.Code)

	// A different source address is unaffected.
	request := httptest.NewRequest("POST", "/api/login", strings.NewReader(body))
	request.RemoteAddr = "198.51.100.7:4242"

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(http.StatusOK, recorder.Code)
}

func TestValidateAPI(t *testing.T) {
	assert := assert.New(t)

	server := helpers.CreateFakeUpstream(t)
	defer server.Close()

	handler, _ := testAPI(t, server.URL)

	body := fmt.Sprintf(`{"auth_token": "%s"}`, helpers.UpstreamToken)
	response := testRoute(t, handler, "POST", "/api/validate", "", body)
	assert.Equal(http.StatusOK, response.Code)

	var parsed map[string]interface{}
	assert.Nil(json.Unmarshal(response.Body.Bytes(), &parsed))
	assert.Equal(true, parsed["valid"])

	// An invalid token is a normal `false`, with no error attached.
	response = testRoute(t, handler, "POST", "/api/validate", "", `{"auth_token": "expired"}`)
	assert.Equal(http.StatusOK, response.Code)

	parsed = nil
	assert.Nil(json.Unmarshal(response.Body.Bytes(), &parsed))
	assert.Equal(false, parsed["valid"])
	assert.NotContains(parsed, "error")
}

func TestValidateAPIUpstreamDown(t *testing.T) {
	assert := assert.New(t)

	server := helpers.CreateFakeUpstream(t)
	url := server.URL
	server.Close()

	handler, _ := testAPI(t, url)

	body := fmt.Sprintf(`{"auth_token": "%s"}`, helpers.UpstreamToken)
	response := testRoute(t, handler, "POST", "/api/validate", "", body)

	// Transport failures surface in the body, not the status code.
	assert.Equal(http.StatusOK, response.Code)

	var parsed map[string]interface{}
	assert.Nil(json.Unmarshal(response.Body.Bytes(), &parsed))
	assert.Equal(false, parsed["valid"])
	assert.NotEmpty(parsed["error"])
}

func TestAccountAPI(t *testing.T) {
	assert := assert.New(t)

	server := helpers.CreateFakeUpstream(t)
	defer server.Close()

	handler, _ := testAPI(t, server.URL)

	response := testRoute(t, handler, "GET", "/api/user/account", helpers.UpstreamToken, "")
	assert.Equal(http.StatusOK, response.Code)

	var account map[string]interface{}
	assert.Nil(json.Unmarshal(response.Body.Bytes(), &account))
	assert.Equal(helpers.UpstreamUsername, account["username"])

	// A token the upstream rejects maps to 401.
	response = testRoute(t, handler, "GET", "/api/user/account", "expired-token", "")
	assert.Equal(http.StatusUnauthorized, response.Code)
}

func TestAccountAPIMissingToken(t *testing.T) {
	assert := assert.New(t)

	server, requests := helpers.CreateRequestRecorder(t)
	defer server.Close()

	handler, _ := testAPI(t, server.URL)

	response := testRoute(t, handler, "GET", "/api/user/account", "", "")
	assert.Equal(http.StatusUnauthorized, response.Code)

	// The request must be rejected before anything goes upstream.
	helpers.AssertNoRequests(t, requests)
}

func TestWorkoutsAPI(t *testing.T) {
	assert := assert.New(t)

	server := helpers.CreateFakeUpstream(t)
	defer server.Close()

	handler, _ := testAPI(t, server.URL)

	url := fmt.Sprintf("/api/workouts?offset=5&username=%s", helpers.UpstreamUsername)
	response := testRoute(t, handler, "GET", url, helpers.UpstreamToken, "")
	assert.Equal(http.StatusOK, response.Code)

	var page map[string]interface{}
	assert.Nil(json.Unmarshal(response.Body.Bytes(), &page))
	assert.Equal(float64(5), page["offset"])
}

func TestWorkoutsAPIBadRequests(t *testing.T) {
	assert := assert.New(t)

	server, requests := helpers.CreateRequestRecorder(t)
	defer server.Close()

	handler, _ := testAPI(t, server.URL)

	// Missing username.
	response := testRoute(t, handler, "GET", "/api/workouts?offset=0", helpers.UpstreamToken, "")
	assert.Equal(http.StatusBadRequest, response.Code)

	// Negative offset.
	url := fmt.Sprintf("/api/workouts?offset=-5&username=%s", helpers.UpstreamUsername)
	response = testRoute(t, handler, "GET", url, helpers.UpstreamToken, "")
	assert.Equal(http.StatusBadRequest, response.Code)

	// Non-integer offset.
	url = fmt.Sprintf("/api/workouts?offset=five&username=%s", helpers.UpstreamUsername)
	response = testRoute(t, handler, "GET", url, helpers.UpstreamToken, "")
	assert.Equal(http.StatusBadRequest, response.Code)

	// Missing token.
	url = fmt.Sprintf("/api/workouts?offset=0&username=%s", helpers.UpstreamUsername)
	response = testRoute(t, handler, "GET", url, "", "")
	assert.Equal(http.StatusUnauthorized, response.Code)

	helpers.AssertNoRequests(t, requests)
}

func TestStatusAPIDisabled(t *testing.T) {
	assert := assert.New(t)

	server := helpers.CreateFakeUpstream(t)
	defer server.Close()

	handler, _ := testAPI(t, server.URL)

	response := testRoute(t, handler, "GET", "/api/status", "", "")
	assert.Equal(http.StatusNotFound, response.Code)
}

func TestStatusAPI(t *testing.T) {
	assert := assert.New(t)

	server := helpers.CreateFakeUpstream(t)
	defer server.Close()

	cfg := helpers.CreateTestConfig(t, server.URL)
	helpers.CreateTestHtpasswd(t, "admin", "s3cret", cfg)
	defer helpers.CleanupHtpasswd(t, cfg)

	handler, err := api.New(cfg)
	assert.Nil(err)

	// Without credentials.
	response := testRoute(t, handler, "GET", "/api/status", "", "")
	assert.Equal(http.StatusUnauthorized, response.Code)

	// With credentials.
	request := httptest.NewRequest("GET", "/api/status", nil)
	request.SetBasicAuth("admin", "s3cret")

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(http.StatusOK, recorder.Code)

	var status map[string]interface{}
	assert.Nil(json.Unmarshal(recorder.Body.Bytes(), &status))
	assert.Equal("ok", status["status"])
}
