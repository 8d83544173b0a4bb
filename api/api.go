package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	auth "github.com/abbot/go-http-auth"
	"github.com/gorilla/mux"

	"github.com/hevy-insights/hevy-gateway/api/ratelimit"
	"github.com/hevy-insights/hevy-gateway/config"
	"github.com/hevy-insights/hevy-gateway/hevy"
)

const (
	// AuthTokenHeader carries the upstream-issued token on authenticated
	// routes.
	AuthTokenHeader = "auth-token"

	basicAuthRealm = "hevy-gateway"

	shutdownTimeout = 5 * time.Second
)

type API struct {
	configLock    sync.RWMutex
	config        *config.Config
	limiter       *ratelimit.Limiter
	authenticator *auth.BasicAuth

	router  *mux.Router
	started time.Time
}

// Return a new router for the API.
func New(cfg *config.Config) (*API, error) {
	api := API{
		router:  mux.NewRouter(),
		started: time.Now(),
	}

	if err := api.SetConfig(cfg); err != nil {
		return nil, err
	}

	api.router.Path("/api/health").
		Methods("GET").
		HandlerFunc(api.getHealth)

	api.router.Path("/api/login").
		Methods("POST").
		Handler(api.withLoginRateLimit(http.HandlerFunc(api.postLogin)))

	api.router.Path("/api/validate").
		Methods("POST").
		HandlerFunc(api.postValidate)

	api.router.Path("/api/status").
		Methods("GET").
		HandlerFunc(api.getStatus)

	// The following routes all require the auth-token header.
	userRoutes := api.router.PathPrefix("/api").Subrouter()
	userRoutes.Use(api.withAuthTokenRequired)

	routeTable := []struct {
		methods []string
		path    string
		handler http.Handler
	}{
		{[]string{"GET"}, "/user/account", http.HandlerFunc(api.getAccount)},
		{[]string{"GET"}, "/workouts", http.HandlerFunc(api.getWorkouts)},
	}

	for _, route := range routeTable {
		userRoutes.Path(route.path).
			Methods(route.methods...).
			Handler(route.handler)
	}

	return &api, nil
}

// Replace the active configuration. The rate-limit window starts fresh and
// the htpasswd file (if any) is re-read.
func (api *API) SetConfig(newConfig *config.Config) error {
	var authenticator *auth.BasicAuth

	if newConfig.HtpasswdPath != "" {
		provider, err := newHtpasswdSecretProvider(newConfig.HtpasswdPath)
		if err != nil {
			return err
		}

		authenticator = auth.NewBasicAuthenticator(basicAuthRealm, provider)
	}

	api.configLock.Lock()
	defer api.configLock.Unlock()

	api.config = newConfig
	api.authenticator = authenticator
	api.limiter = ratelimit.New(int(newConfig.LoginRateLimit), newConfig.LoginRateWindow())

	return nil
}

func (api *API) Serve() *http.Server {
	api.configLock.RLock()
	addr := fmt.Sprintf(":%d", api.config.Port)
	useTLS := api.config.UseTLS
	certificate := api.config.SSLCertificate
	key := api.config.SSLKey
	api.configLock.RUnlock()

	server := http.Server{
		Addr:    addr,
		Handler: loggingMiddleware(api.router),
	}

	go func() {
		var err error

		if useTLS {
			err = server.ListenAndServeTLS(certificate, key)
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe: ", err)
		}
	}()

	return &server
}

// Shut down the given server, giving in-progress requests a grace period to
// finish before all connections are closed.
func (api *API) Shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return server.Shutdown(ctx)
}

// Serve a request.
//
// This is only meant for unit tests, which drive the router directly instead
// of going through `api.Serve`.
func (api *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	loggingMiddleware(api.router).ServeHTTP(w, r)
}

// Snapshot the upstream settings for a single outbound call.
func (api *API) upstream() hevy.Upstream {
	api.configLock.RLock()
	defer api.configLock.RUnlock()

	return hevy.Upstream{
		BaseURL: api.config.UpstreamURL,
		APIKey:  api.config.UpstreamAPIKey,
		Timeout: api.config.RequestTimeout(),
	}
}

func (api *API) currentLimiter() *ratelimit.Limiter {
	api.configLock.RLock()
	defer api.configLock.RUnlock()

	return api.limiter
}

func (api *API) currentAuthenticator() *auth.BasicAuth {
	api.configLock.RLock()
	defer api.configLock.RUnlock()

	return api.authenticator
}
