package gitrepo

import (
	"fmt"
	"net/url"
	"strings"
)

// CredentialUser is the user name GitLab expects in front of an access token in clone URLs.
const CredentialUser = "oauth2"

// CredentialURL embeds the token into an http(s) clone URL: https://oauth2:<token>@host/path.git
func CredentialURL(repoURL string, token string) (string, error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("invalid clone URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", fmt.Errorf("unsupported clone URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("clone URL %s has no host", repoURL)
	}
	u.User = url.UserPassword(CredentialUser, token)
	return u.String(), nil
}

// RedactToken hides the token, raw or URL encoded, in s.
func RedactToken(s string, token string) string {
	if token == "" {
		return s
	}
	s = strings.ReplaceAll(s, token, "*****")
	if escaped := url.UserPassword(CredentialUser, token).String(); escaped != CredentialUser+":"+token {
		s = strings.ReplaceAll(s, strings.TrimPrefix(escaped, CredentialUser+":"), "*****")
	}
	return s
}
