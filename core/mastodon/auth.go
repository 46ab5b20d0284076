package mastodon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	// RedirectURI is the out-of-band redirect for the manual code flow.
	RedirectURI = "urn:ietf:wg:oauth:2.0:oob"
	// Scopes are the access scopes the importer requires.
	Scopes = "read write"

	authFileName = "import_auth.json"
)

// credential is the persisted authentication state. AccessToken is empty
// between application registration and the code exchange.
type credential struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AccessToken  string `json:"access_token,omitempty"`
}

// Authenticator obtains a bearer credential for the configured server,
// persisting intermediate and final state so re-runs skip completed stages.
type Authenticator struct {
	path   string
	client *Client

	// In and Out drive the interactive code prompt. They default to the
	// process's stdin/stdout.
	In  io.Reader
	Out io.Writer
}

// NewAuthenticator stores credentials under dir (the archive directory, so
// the credential travels with the log it belongs to).
func NewAuthenticator(dir string, client *Client) *Authenticator {
	return &Authenticator{
		path:   filepath.Join(dir, authFileName),
		client: client,
		In:     os.Stdin,
		Out:    os.Stdout,
	}
}

// Obtain returns a "Bearer <token>" value, running whichever stages of the
// flow have not yet completed: application registration, then the interactive
// authorization-code exchange.
func (a *Authenticator) Obtain(ctx context.Context) (string, error) {
	cred, err := a.load()
	if err != nil {
		return "", err
	}

	if cred == nil {
		app, err := a.client.CreateApplication(ctx, "Toot Importer", "https://github.com/toot-importer/toot-importer")
		if err != nil {
			return "", err
		}
		cred = &credential{ClientID: app.ClientID, ClientSecret: app.ClientSecret}
		if err := a.save(cred); err != nil {
			return "", err
		}
	}

	if cred.AccessToken == "" {
		authURL := fmt.Sprintf(
			"%s/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&response_type=code",
			a.client.Host(),
			url.QueryEscape(cred.ClientID),
			url.QueryEscape(Scopes),
			url.QueryEscape(RedirectURI),
		)
		fmt.Fprintf(a.Out, "\nVisit %s in your browser\n", authURL)
		fmt.Fprint(a.Out, "Paste resulting code and press enter: ")

		scanner := bufio.NewScanner(a.In)
		if !scanner.Scan() {
			return "", fmt.Errorf("failed to read authorization code: %w", scanner.Err())
		}
		code := strings.TrimSpace(scanner.Text())

		token, err := a.client.CreateOAuthToken(ctx, cred.ClientID, cred.ClientSecret, code)
		if err != nil {
			return "", err
		}
		if token.TokenType != "Bearer" {
			return "", fmt.Errorf("unexpected token type %q", token.TokenType)
		}
		if !hasScope(token.Scope, "write") {
			return "", fmt.Errorf("token is missing the write scope (got %q)", token.Scope)
		}

		cred.AccessToken = token.AccessToken
		if err := a.save(cred); err != nil {
			return "", err
		}
	}

	return "Bearer " + cred.AccessToken, nil
}

func hasScope(scopes, want string) bool {
	for _, scope := range strings.Fields(scopes) {
		if scope == want {
			return true
		}
	}
	return false
}

func (a *Authenticator) load() (*credential, error) {
	data, err := os.ReadFile(a.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	var cred credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return &cred, nil
}

func (a *Authenticator) save(cred *credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(a.path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}
	return nil
}
