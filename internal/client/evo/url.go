package evo

import (
	"fmt"
	"net/url"
	"strings"
)

// SessionConfig is the set of credentials pulled out of a pasted lobby
// websocket URL. The operator copies the URL from browser devtools; everything
// we need to dial is embedded in its path and query.
type SessionConfig struct {
	SessionID     string `json:"session_id"`
	BareSessionID string `json:"bare_session_id"`
	Instance      string `json:"instance"`
	ClientVersion string `json:"client_version"`
}

// ValidateURL reports whether the URL looks like an upstream lobby or room
// socket URL with the parameters we need.
func ValidateURL(raw string) bool {
	if strings.TrimSpace(raw) == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return false
	}
	if !strings.Contains(u.Host, "evo-games.com") {
		return false
	}
	if !strings.Contains(u.Path, "/socket/v2/") && !strings.Contains(u.Path, "/game/socket/") {
		return false
	}
	q := u.Query()
	for _, param := range []string{"EVOSESSIONID", "instance", "client_version"} {
		if q.Get(param) == "" {
			return false
		}
	}
	return true
}

// ExtractSession parses a lobby websocket URL into a SessionConfig. The
// instance query parameter arrives as "{instance}-{bare_session_id}-"; only
// the leading segment is kept.
func ExtractSession(raw string) (SessionConfig, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return SessionConfig{}, fmt.Errorf("parse ws url: %w", err)
	}

	parts := strings.Split(u.Path, "/")
	bare := parts[len(parts)-1]

	q := u.Query()
	instance := q.Get("instance")
	if idx := strings.Index(instance, "-"); idx >= 0 {
		instance = instance[:idx]
	}

	cfg := SessionConfig{
		SessionID:     q.Get("EVOSESSIONID"),
		BareSessionID: bare,
		Instance:      instance,
		ClientVersion: q.Get("client_version"),
	}
	if cfg.SessionID == "" || cfg.BareSessionID == "" || cfg.Instance == "" || cfg.ClientVersion == "" {
		return SessionConfig{}, fmt.Errorf("ws url missing required session parameters")
	}
	return cfg, nil
}

// LobbySocketURL builds the lobby socket URL for a session.
func LobbySocketURL(host, features string, cfg SessionConfig) string {
	return fmt.Sprintf(
		"wss://%s/public/lobby/socket/v2/%s?messageFormat=json&device=Desktop&features=%s&instance=%s-%s-&EVOSESSIONID=%s&client_version=%s",
		host, cfg.BareSessionID, url.QueryEscape(features),
		cfg.Instance, cfg.BareSessionID, cfg.SessionID, cfg.ClientVersion,
	)
}

// RoomSocketURL builds the per-room game socket URL from the same session.
func RoomSocketURL(host, roomID string, cfg SessionConfig) string {
	return fmt.Sprintf(
		"wss://%s/public/game/socket/%s/%s?messageFormat=json&device=Desktop&instance=%s-%s-&EVOSESSIONID=%s&client_version=%s",
		host, roomID, cfg.BareSessionID,
		cfg.Instance, cfg.BareSessionID, cfg.SessionID, cfg.ClientVersion,
	)
}
