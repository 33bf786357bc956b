package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func write(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"json", "bot.json", `{"room": "lounge", "reconnect_delay": "5s", "max_chat_history": 10, "commands": ["help"]}`},
		{"jsonc", "bot.jsonc", `{
			// комната
			"room": "lounge",
			"reconnect_delay": 5, /* секунды */
			"max_chat_history": 10,
			"commands": ["help",],
		}`},
		{"yaml", "bot.yaml", "room: lounge\nreconnect_delay: 5s\nmax_chat_history: 10\ncommands: [help]\n"},
		{"yml with number", "bot.yml", "room: lounge\nreconnect_delay: 5\nmax_chat_history: 10\ncommands:\n  - help\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, created, err := Load(write(t, tt.file, tt.body))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if created {
				t.Error("created = true for an existing file")
			}
			if cfg.Room != "lounge" || cfg.MaxChatHistory != 10 {
				t.Errorf("cfg = %+v", cfg)
			}
			if time.Duration(cfg.ReconnectDelay) != 5*time.Second {
				t.Errorf("ReconnectDelay = %v", cfg.ReconnectDelay)
			}
			if !slices.Equal(cfg.Commands, []string{"help"}) {
				t.Errorf("Commands = %v", cfg.Commands)
			}
			// неуказанное остаётся по умолчанию
			if cfg.MaxPlayHistory != Default().MaxPlayHistory || cfg.APIURL != Default().APIURL {
				t.Errorf("defaults lost: %+v", cfg)
			}
		})
	}
}

func TestLoadMissingWritesDefaults(t *testing.T) {
	for _, name := range []string{"conf/botconfig.json", "conf/bot.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg, created, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !created {
				t.Error("created = false")
			}
			if !slices.Equal(cfg.Commands, Default().Commands) {
				t.Errorf("Commands = %v", cfg.Commands)
			}

			again, created, err := Load(path)
			if err != nil || created {
				t.Fatalf("reload: created=%v err=%v", created, err)
			}
			if again.ReconnectDelay != Default().ReconnectDelay || !slices.Equal(again.Listeners, Default().Listeners) {
				t.Errorf("reloaded = %+v", again)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"broken json", "bot.json", `{"room": `},
		{"bad duration", "bot.json", `{"reconnect_delay": "soon"}`},
		{"duration type", "bot.yaml", "reconnect_delay: [1]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Load(write(t, tt.file, tt.body)); err == nil {
				t.Error("no error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	ok := Default()
	ok.Room = "lounge"
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid config: %v", err)
	}

	bad := Default()
	bad.SocketURL = ""
	bad.ReconnectDelay = -1
	bad.LogLevel = "loud"
	bad.LogFormat = "xml"
	err := bad.Validate()
	if err == nil {
		t.Fatal("no error")
	}
	for _, want := range []string{"room is required", "socket_url", "reconnect_delay", "log_level", "log_format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestPath(t *testing.T) {
	t.Setenv(EnvPath, "")
	if got := Path(""); got != DefaultPath {
		t.Errorf("Path = %q", got)
	}
	t.Setenv(EnvPath, "/etc/dubbot.yaml")
	if got := Path(""); got != "/etc/dubbot.yaml" {
		t.Errorf("Path = %q", got)
	}
	if got := Path("x.json"); got != "x.json" {
		t.Errorf("Path = %q", got)
	}
}

func TestLevel(t *testing.T) {
	c := Default()
	for in, want := range map[string]slog.Level{"": slog.LevelInfo, "debug": slog.LevelDebug, "WARN": slog.LevelWarn} {
		c.LogLevel = in
		got, err := c.Level()
		if err != nil || got != want {
			t.Errorf("Level(%q) = %v, %v", in, got, err)
		}
	}
}

func TestBotOptions(t *testing.T) {
	c := Default()
	c.Room = "lounge"
	c.CommandsCaseSensitive = true
	c.Credentials = Credentials{Username: "bot", Password: "pw"}
	o := c.BotOptions(slog.Default())
	if o.Room != "lounge" || !o.CaseSensitive || o.ReconnectDelay != time.Second || o.MaxChatHistory != 512 {
		t.Errorf("Options = %+v", o)
	}
	if cl := c.Client(); cl.Username != "bot" || cl.SocketURL == "" {
		t.Errorf("Client = %+v", cl)
	}
}

func TestSaveUnwritable(t *testing.T) {
	dir := t.TempDir()
	// файл на месте каталога
	blocker := filepath.Join(dir, "conf")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := Load(filepath.Join(blocker, "bot.json"))
	if err == nil {
		t.Fatal("no error")
	}
	var pe *os.PathError
	if !errors.As(err, &pe) {
		t.Errorf("err = %v, want PathError", err)
	}
}
