package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewGithubOAuth(t *testing.T) {
	oauth := NewGithubOAuth("client-id", "client-secret", "http://localhost/callback")

	assert.NotNil(t, oauth)
	assert.NotNil(t, oauth.config)
	assert.Equal(t, "client-id", oauth.config.ClientID)
	assert.Equal(t, "client-secret", oauth.config.ClientSecret)
	assert.Equal(t, "http://localhost/callback", oauth.config.RedirectURL)
	assert.Contains(t, oauth.config.Scopes, "user:email")
}

func TestGithubOAuth_GetAuthURL(t *testing.T) {
	oauth := NewGithubOAuth("test-client-id", "test-secret", "http://example.com/callback")

	url := oauth.GetAuthURL("test-state")

	assert.Contains(t, url, "github.com")
	assert.Contains(t, url, "client_id=test-client-id")
	assert.Contains(t, url, "state=test-state")
	assert.Contains(t, url, "redirect_uri=")
}

func TestGithubOAuth_GetAuthURL_DifferentStates(t *testing.T) {
	oauth := NewGithubOAuth("client", "secret", "http://localhost/callback")

	url1 := oauth.GetAuthURL("state1")
	url2 := oauth.GetAuthURL("state2")

	assert.Contains(t, url1, "state=state1")
	assert.Contains(t, url2, "state=state2")
	assert.NotEqual(t, url1, url2)
}
