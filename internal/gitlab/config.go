package gitlab

import (
	"fmt"
	"os"
	"strings"
)

const DefaultTokenEnvVar = "GITLAB_TOKEN"

type TokenType string

const (
	// TokenTypePrivate sends the token in the PRIVATE-TOKEN header (personal, group and project access tokens).
	TokenTypePrivate TokenType = "private"
	// TokenTypeOAuth sends the token as an OAuth2 bearer token.
	TokenTypeOAuth TokenType = "oauth"
)

type GitLabConfig struct {
	URL                  string    `yaml:"url"`         // Server URL, a bare host name is taken as https
	EnvTokenVariableName string    `yaml:"tokenEnvVar"` // The environment variable name for the GitLab token
	TokenType            TokenType `yaml:"tokenType"`
	Groups               []string  `yaml:"groups"` // Numeric group IDs or full paths
	IncludeSubgroups     bool      `yaml:"includeSubgroups"`
	RateLimitPerSecond   int       `yaml:"rateLimitPerSecond"` // 0 is interpreted as no limit
}

func (gitLabConfig GitLabConfig) RetrieveTokenFromEnv() string {
	name := gitLabConfig.EnvTokenVariableName
	if name == "" {
		name = DefaultTokenEnvVar
	}
	return strings.TrimSpace(os.Getenv(name))
}

// ServerURL returns the configured server URL with a scheme and without trailing slashes.
func (gitLabConfig GitLabConfig) ServerURL() string {
	server := strings.TrimRight(strings.TrimSpace(gitLabConfig.URL), "/")
	if server != "" && !strings.Contains(server, "://") {
		server = "https://" + server
	}
	return server
}

func (gitLabConfig GitLabConfig) apiBaseURL() string {
	return fmt.Sprintf("%s/api/v4", gitLabConfig.ServerURL())
}

func (t TokenType) Validate() error {
	switch t {
	case "", TokenTypePrivate, TokenTypeOAuth:
		return nil
	}
	return fmt.Errorf("unknown token type %q, expected %q or %q", string(t), TokenTypePrivate, TokenTypeOAuth)
}
