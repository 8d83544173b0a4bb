package hevy

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// PageSize is the fixed number of workouts the upstream returns per page.
	// Offsets advance in multiples of this.
	PageSize = 5

	apiKeyHeader    = "x-api-key"
	authTokenHeader = "auth-token"

	loginPath    = "/login"
	validatePath = "/validate_auth_token"
	accountPath  = "/user/account"
	workoutsPath = "/user_workouts_paged"
)

// Upstream holds the fixed connection settings for the Hevy API.
type Upstream struct {
	// The base URL of the Hevy API, without a trailing slash.
	BaseURL string

	// The static API key attached to every request.
	APIKey string

	// The transport timeout for a single outbound call.
	Timeout time.Duration
}

// Client is a thin wrapper around the Hevy REST API. It holds at most one
// auth token, set either at construction or by a successful Login, and
// attaches it to every authenticated call. A Client is intended to live for
// a single inbound request and is not safe for concurrent use.
type Client struct {
	upstream Upstream
	token    string
	http     *http.Client
}

// NewClient returns a client for the given upstream. Pass an empty token if
// the caller intends to Login.
func NewClient(token string, upstream Upstream) *Client {
	return &Client{
		upstream: upstream,
		token:    token,
		http: &http.Client{
			Timeout: upstream.Timeout,
		},
	}
}

// Token returns the currently held auth token, if any.
func (c *Client) Token() string {
	return c.token
}

type loginRequest struct {
	EmailOrUsername string `json:"emailOrUsername"`
	Password        string `json:"password"`
	UseAuth20       bool   `json:"useAuth2_0"`
}

type loginResponse struct {
	AuthToken string `json:"auth_token"`
	UserID    string `json:"user_id"`
}

// Login exchanges an identifier (email or username) and password for an auth
// token. On success the token is stored on the client and attached to all
// subsequent authenticated calls.
func (c *Client) Login(identifier, password string) (*User, error) {
	body, err := json.Marshal(loginRequest{
		EmailOrUsername: identifier,
		Password:        password,
		UseAuth20:       true,
	})
	if err != nil {
		return nil, newError(KindInternal, "login: could not encode request: %s", err.Error())
	}

	request, err := http.NewRequest(http.MethodPost, c.upstream.BaseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return nil, newError(KindInternal, "login: could not build request: %s", err.Error())
	}

	request.Header.Set(apiKeyHeader, c.upstream.APIKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.http.Do(request)
	if err != nil {
		return nil, transportError("login", err)
	}

	defer response.Body.Close()

	if response.StatusCode == http.StatusUnauthorized {
		return nil, newError(KindInvalidCredentials, "Invalid credentials")
	} else if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, newError(KindUpstream, "login: upstream returned %s", response.Status)
	}

	var parsed loginResponse
	if err = json.NewDecoder(response.Body).Decode(&parsed); err != nil {
		return nil, newError(KindBadResponse, "login: could not decode response: %s", err.Error())
	}

	c.token = parsed.AuthToken

	user := User{
		AuthToken: parsed.AuthToken,
		UserID:    parsed.UserID,
	}

	if strings.Contains(identifier, "@") {
		user.Email = identifier
	} else {
		user.Username = identifier
	}

	return &user, nil
}

type validateRequest struct {
	AuthToken string `json:"authToken"`
}

// ValidateToken reports whether the held token is valid. A client with no
// token is trivially invalid and no outbound call is made. Only transport
// failures are errors.
//
// The upstream answers 200 for a valid token and a non-200 status for
// everything else, so an upstream-side failure is indistinguishable from an
// invalid token. We keep that behavior rather than guess.
func (c *Client) ValidateToken() (bool, error) {
	if c.token == "" {
		return false, nil
	}

	body, err := json.Marshal(validateRequest{AuthToken: c.token})
	if err != nil {
		return false, newError(KindInternal, "validate token: could not encode request: %s", err.Error())
	}

	request, err := http.NewRequest(http.MethodPost, c.upstream.BaseURL+validatePath, bytes.NewReader(body))
	if err != nil {
		return false, newError(KindInternal, "validate token: could not build request: %s", err.Error())
	}

	c.setAuthHeaders(request)

	response, err := c.http.Do(request)
	if err != nil {
		return false, transportError("validate token", err)
	}

	response.Body.Close()

	return response.StatusCode == http.StatusOK, nil
}

// GetAccount fetches the authenticated user's account information and
// returns the payload untouched.
func (c *Client) GetAccount() (json.RawMessage, error) {
	return c.get("account", accountPath, nil)
}

// GetWorkouts fetches one page of workout history for the given user. The
// offset advances in multiples of PageSize (0, 5, 10, ...).
func (c *Client) GetWorkouts(username string, offset int) (json.RawMessage, error) {
	if offset < 0 {
		return nil, newError(KindInternal, "workouts: offset must be non-negative")
	}

	query := url.Values{}
	query.Set("offset", strconv.Itoa(offset))

	if username != "" {
		query.Set("username", username)
	}

	return c.get("workouts", workoutsPath, query)
}

// Perform an authenticated GET and apply the shared status mapping. Callers
// without a token fail here, before anything touches the network.
func (c *Client) get(op, path string, query url.Values) (json.RawMessage, error) {
	if c.token == "" {
		return nil, newError(KindUnauthorized, "%s: no auth token available, login first", op)
	}

	target := c.upstream.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	request, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return nil, newError(KindInternal, "%s: could not build request: %s", op, err.Error())
	}

	c.setAuthHeaders(request)

	response, err := c.http.Do(request)
	if err != nil {
		return nil, transportError(op, err)
	}

	defer response.Body.Close()

	if response.StatusCode == http.StatusUnauthorized {
		return nil, newError(KindUnauthorized, "%s: auth token is invalid or expired", op)
	} else if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, newError(KindUpstream, "%s: upstream returned %s", op, response.Status)
	}

	payload, err := ioutil.ReadAll(response.Body)
	if err != nil {
		return nil, transportError(op, err)
	}

	if !json.Valid(payload) {
		return nil, newError(KindBadResponse, "%s: could not decode response body", op)
	}

	return payload, nil
}

func (c *Client) setAuthHeaders(request *http.Request) {
	request.Header.Set(apiKeyHeader, c.upstream.APIKey)
	request.Header.Set(authTokenHeader, c.token)
	request.Header.Set("Content-Type", "application/json")
}
