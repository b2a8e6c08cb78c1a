// Package steam authenticates players against Steam's OpenID 2.0 provider
// and resolves their display name through the Steam Web API. The rest of the
// system consumes the resulting Identity as given and never re-derives it.
package steam

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultProviderURL = "https://steamcommunity.com/openid/login"

var claimedIDPattern = regexp.MustCompile(`^https?://steamcommunity\.com/openid/id/(\d+)$`)

// Identity is the stable player identity Steam hands back after login.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Authenticator drives the OpenID 2.0 checkid_setup / check_authentication
// round trip against the Steam provider.
type Authenticator struct {
	realm       string
	returnURL   string
	apiKey      string
	providerURL string
	summaryURL  string
	client      *http.Client
	logger      *zap.Logger
}

// NewAuthenticator creates an Authenticator for the given realm and callback.
func NewAuthenticator(realm, returnURL, apiKey string, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		realm:       realm,
		returnURL:   returnURL,
		apiKey:      apiKey,
		providerURL: defaultProviderURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
	}
}

// SetProviderURL overrides the Steam OpenID endpoint. Used by tests.
func (a *Authenticator) SetProviderURL(u string) { a.providerURL = u }

// SetSummaryURL overrides the player summaries endpoint. Used by tests.
func (a *Authenticator) SetSummaryURL(u string) { a.summaryURL = u }

// LoginURL builds the redirect that sends the browser to the Steam sign-in
// page.
func (a *Authenticator) LoginURL() string {
	q := url.Values{}
	q.Set("openid.ns", "http://specs.openid.net/auth/2.0")
	q.Set("openid.mode", "checkid_setup")
	q.Set("openid.return_to", a.returnURL)
	q.Set("openid.realm", a.realm)
	q.Set("openid.identity", "http://specs.openid.net/auth/2.0/identifier_select")
	q.Set("openid.claimed_id", "http://specs.openid.net/auth/2.0/identifier_select")
	return a.providerURL + "?" + q.Encode()
}

// Verify validates the OpenID callback parameters by replaying them to the
// provider with mode=check_authentication, and returns the 64-bit Steam ID
// extracted from the claimed identity.
func (a *Authenticator) Verify(ctx context.Context, params url.Values) (string, error) {
	if params.Get("openid.mode") != "id_res" {
		return "", fmt.Errorf("steam: unexpected openid.mode %q", params.Get("openid.mode"))
	}

	m := claimedIDPattern.FindStringSubmatch(params.Get("openid.claimed_id"))
	if m == nil {
		return "", fmt.Errorf("steam: malformed claimed_id %q", params.Get("openid.claimed_id"))
	}
	steamID := m[1]

	check := url.Values{}
	for k, vs := range params {
		if len(vs) > 0 {
			check.Set(k, vs[0])
		}
	}
	check.Set("openid.mode", "check_authentication")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.providerURL,
		strings.NewReader(check.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("steam: check_authentication: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("steam: provider returned status %d", resp.StatusCode)
	}
	if !assertionValid(string(body)) {
		return "", fmt.Errorf("steam: provider rejected assertion")
	}

	a.logger.Debug("steam openid verified", zap.String("steam_id", steamID))
	return steamID, nil
}

// assertionValid parses the key:value response body of check_authentication.
func assertionValid(body string) bool {
	for _, line := range strings.Split(body, "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), ":")
		if ok && k == "is_valid" {
			return v == "true"
		}
	}
	return false
}
