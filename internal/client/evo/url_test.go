package evo

import (
	"strings"
	"testing"
)

const sampleLobbyURL = "wss://live.evo-games.com/public/lobby/socket/v2/abc123bare?messageFormat=json&device=Desktop&instance=vhqz66-abc123bare-&EVOSESSIONID=sess-token-9f&client_version=6.20.1"

func TestExtractSession(t *testing.T) {
	cfg, err := ExtractSession(sampleLobbyURL)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if cfg.SessionID != "sess-token-9f" {
		t.Fatalf("session id = %q", cfg.SessionID)
	}
	if cfg.BareSessionID != "abc123bare" {
		t.Fatalf("bare session id = %q", cfg.BareSessionID)
	}
	if cfg.Instance != "vhqz66" {
		t.Fatalf("instance = %q, want leading segment only", cfg.Instance)
	}
	if cfg.ClientVersion != "6.20.1" {
		t.Fatalf("client version = %q", cfg.ClientVersion)
	}
}

func TestExtractSessionMissingParams(t *testing.T) {
	if _, err := ExtractSession("wss://live.evo-games.com/public/lobby/socket/v2/abc?instance=a-b-"); err == nil {
		t.Fatalf("missing EVOSESSIONID must fail")
	}
}

func TestValidateURL(t *testing.T) {
	if !ValidateURL(sampleLobbyURL) {
		t.Fatalf("sample lobby URL should validate")
	}
	bad := []string{
		"",
		"https://live.evo-games.com/public/lobby/socket/v2/abc?EVOSESSIONID=s&instance=i-&client_version=1",
		"wss://other-host.example.com/public/lobby/socket/v2/abc?EVOSESSIONID=s&instance=i-&client_version=1",
		"wss://live.evo-games.com/somewhere/else?EVOSESSIONID=s&instance=i-&client_version=1",
		strings.Replace(sampleLobbyURL, "EVOSESSIONID=sess-token-9f&", "", 1),
	}
	for _, raw := range bad {
		if ValidateURL(raw) {
			t.Fatalf("%q should not validate", raw)
		}
	}
}

func TestSocketURLRoundTrip(t *testing.T) {
	cfg := SessionConfig{
		SessionID:     "sess-token-9f",
		BareSessionID: "abc123bare",
		Instance:      "vhqz66",
		ClientVersion: "6.20.1",
	}

	lobby := LobbySocketURL("live.evo-games.com", "opt1,opt2", cfg)
	if !ValidateURL(lobby) {
		t.Fatalf("built lobby URL should validate: %s", lobby)
	}
	got, err := ExtractSession(lobby)
	if err != nil {
		t.Fatalf("extract built URL: %v", err)
	}
	if got != cfg {
		t.Fatalf("round trip config = %+v, want %+v", got, cfg)
	}

	room := RoomSocketURL("live.evo-games.com", "room77", cfg)
	if !ValidateURL(room) {
		t.Fatalf("built room URL should validate: %s", room)
	}
	if !strings.Contains(room, "/public/game/socket/room77/abc123bare") {
		t.Fatalf("room path wrong: %s", room)
	}
}
