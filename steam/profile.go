package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

const defaultSummaryURL = "https://api.steampowered.com/ISteamUser/GetPlayerSummaries/v2/"

type playerSummariesResponse struct {
	Response struct {
		Players []struct {
			SteamID     string `json:"steamid"`
			PersonaName string `json:"personaname"`
		} `json:"players"`
	} `json:"response"`
}

// FetchPersona looks up the player's current persona name via the Steam Web
// API. It is best-effort: on any failure the Steam ID doubles as the display
// name so login never blocks on the profile service.
func (a *Authenticator) FetchPersona(ctx context.Context, steamID string) string {
	name, err := a.fetchPersona(ctx, steamID)
	if err != nil {
		a.logger.Warn("persona lookup failed, falling back to steam id",
			zap.String("steam_id", steamID), zap.Error(err))
		return steamID
	}
	return name
}

func (a *Authenticator) fetchPersona(ctx context.Context, steamID string) (string, error) {
	if a.apiKey == "" {
		return "", fmt.Errorf("steam: api key not configured")
	}

	q := url.Values{}
	q.Set("key", a.apiKey)
	q.Set("steamids", steamID)

	u := a.summaryURL
	if u == "" {
		u = defaultSummaryURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("steam: summaries returned status %d", resp.StatusCode)
	}

	var out playerSummariesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Response.Players) == 0 || out.Response.Players[0].PersonaName == "" {
		return "", fmt.Errorf("steam: no persona for %s", steamID)
	}
	return out.Response.Players[0].PersonaName, nil
}
