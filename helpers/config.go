package helpers

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/foomo/htpasswd"
	"github.com/stretchr/testify/assert"

	"github.com/hevy-insights/hevy-gateway/config"
)

// Create a configuration suitable for unit tests, pointed at the given
// upstream URL (usually an `httptest.Server`).
func CreateTestConfig(t *testing.T, upstreamURL string) *config.Config {
	t.Helper()

	return &config.Config{
		Port:                8888,
		UpstreamURL:         upstreamURL,
		UpstreamAPIKey:      config.DefaultUpstreamAPIKey,
		RequestTimeoutSecs:  config.DefaultRequestTimeoutSecs,
		LoginRateLimit:      config.DefaultLoginRateLimit,
		LoginRateWindowSecs: config.DefaultLoginRateWindowSecs,
	}
}

// Write the given configuration to the given path.
func WriteConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	assert := assert.New(t)

	data, err := cfg.Serialize()
	assert.Nil(err)

	err = ioutil.WriteFile(path, data, 0600)
	assert.Nil(err)
}

// Create an htpasswd file and store its path in the given Config instance.
//
// The caller is responsible for cleaning up with `CleanupHtpasswd`.
func CreateTestHtpasswd(t *testing.T, username, password string, cfg *config.Config) {
	t.Helper()
	assert := assert.New(t)

	tmpfile, err := ioutil.TempFile("", "htpasswd-")
	assert.Nil(err)

	cfg.HtpasswdPath = tmpfile.Name()

	err = tmpfile.Close()
	assert.Nil(err)

	err = htpasswd.SetPassword(cfg.HtpasswdPath, username, password, htpasswd.HashBCrypt)
	assert.Nil(err)
}

// Remove the htpasswd file referenced by the given Config instance.
func CleanupHtpasswd(t *testing.T, cfg *config.Config) {
	t.Helper()

	if cfg.HtpasswdPath != "" {
		os.Remove(cfg.HtpasswdPath)
	}
}
