package clients

import (
	"crypto/subtle"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Client describes the single third-party client a deployment serves. The
// value is built once from configuration at process start and never mutated.
type Client struct {
	ID                   string
	Name                 string
	Secret               string // empty for public clients
	AllowedRedirectHosts []string
}

// IsPublic reports whether the client authenticates without a secret.
func (c Client) IsPublic() bool { return c.Secret == "" }

// Registry resolves the configured client and answers redirect and
// credential checks against it. It holds no mutable state and is safe for
// concurrent use.
type Registry struct {
	client Client
}

// NewRegistry validates and normalises the client configuration. Redirect
// hosts are lowercased so later comparisons are case-insensitive.
func NewRegistry(client Client) (*Registry, error) {
	if strings.TrimSpace(client.ID) == "" {
		return nil, errors.New("[NewRegistry] client ID is required")
	}
	hosts := make([]string, 0, len(client.AllowedRedirectHosts))
	for _, host := range client.AllowedRedirectHosts {
		host = strings.ToLower(strings.TrimSpace(host))
		if host == "" {
			continue
		}
		hosts = append(hosts, host)
	}
	if len(hosts) == 0 {
		return nil, errors.New("[NewRegistry] at least one allowed redirect host is required")
	}
	client.AllowedRedirectHosts = hosts
	if client.Name == "" {
		client.Name = client.ID
	}
	return &Registry{client: client}, nil
}

// Resolve returns the configured client. Every call within a process
// lifetime returns the same value.
func (r *Registry) Resolve() Client { return r.client }

// IsAllowedRedirect reports whether uri parses as an https URL whose host is
// on the client's redirect allow-list.
func (r *Registry) IsAllowedRedirect(uri string) bool {
	parsed, err := url.Parse(uri)
	if err != nil {
		return false
	}
	if parsed.Scheme != "https" {
		return false
	}
	host := strings.ToLower(parsed.Host)
	for _, allowed := range r.client.AllowedRedirectHosts {
		if host == allowed {
			return true
		}
	}
	return false
}

// Authenticate checks the client id and, when the deployment configures a
// secret, the secret as well. The secret comparison is constant time.
func (r *Registry) Authenticate(clientID, clientSecret string) error {
	if clientID != r.client.ID {
		return UnknownClientErr
	}
	if r.client.IsPublic() {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(clientSecret), []byte(r.client.Secret)) != 1 {
		return ClientSecretMismatchErr
	}
	return nil
}
