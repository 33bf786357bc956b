// Package config — конфиг бота. Один файл: путь из --config, иначе из
// DUBBOT_CONFIG, иначе conf/botconfig.json.
//
// Форматы по расширению: .yaml/.yml — YAML, .json/.jsonc — JSON, в котором
// допускаются комментарии и висячие запятые. Если файла нет, он создаётся
// со значениями по умолчанию, и бот стартует с ними.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/EgorLis/dubbot/internal/bot"
	"github.com/EgorLis/dubbot/internal/dubclient"
	"github.com/EgorLis/dubbot/internal/room"
)

const (
	EnvPath     = "DUBBOT_CONFIG"
	DefaultPath = "conf/botconfig.json"
)

type Credentials struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

type Config struct {
	Room        string      `json:"room" yaml:"room"`
	Credentials Credentials `json:"credentials" yaml:"credentials"`
	APIURL      string      `json:"api_url" yaml:"api_url"`
	SocketURL   string      `json:"socket_url" yaml:"socket_url"`

	CommandsCaseSensitive bool     `json:"commands_case_sensitive" yaml:"commands_case_sensitive"`
	LogAllEvents          bool     `json:"log_all_events" yaml:"log_all_events"`
	MaxChatHistory        int      `json:"max_chat_history" yaml:"max_chat_history"`
	MaxPlayHistory        int      `json:"max_play_history" yaml:"max_play_history"`
	ReconnectDelay        Duration `json:"reconnect_delay" yaml:"reconnect_delay"`

	// Модули по именам из реестра plugin.
	Commands  []string `json:"commands" yaml:"commands"`
	Listeners []string `json:"listeners" yaml:"listeners"`

	// Необязательное: пусто — выключено.
	RecordFile string `json:"record_file,omitempty" yaml:"record_file,omitempty"`
	StatusAddr string `json:"status_addr,omitempty" yaml:"status_addr,omitempty"`
	Hotkeys    bool   `json:"hotkeys" yaml:"hotkeys"`

	LogFormat string `json:"log_format" yaml:"log_format"` // text | json
	LogLevel  string `json:"log_level" yaml:"log_level"`   // debug | info | warn | error
}

func Default() *Config {
	return &Config{
		APIURL:         "https://api.dubtrack.fm",
		SocketURL:      "wss://ws.dubtrack.fm/ws",
		MaxChatHistory: room.DefaultMaxChatHistory,
		MaxPlayHistory: room.DefaultMaxPlayHistory,
		ReconnectDelay: Duration(time.Second),
		Commands:       []string{"help", "woot", "meh", "grab", "skip", "lastplayed", "stats", "move"},
		Listeners:      []string{"welcome", "deletions", "modlog"},
		LogFormat:      "text",
		LogLevel:       "info",
	}
}

// Path выбирает файл конфига.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load читает конфиг поверх значений по умолчанию. Отсутствующий файл
// создаётся с дефолтами; created == true в этом случае.
func Load(path string) (cfg *Config, created bool, err error) {
	cfg = Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := cfg.Save(path); err != nil {
				return nil, false, err
			}
			return cfg, true, nil
		}
		return nil, false, fmt.Errorf("config: %w", err)
	}
	if err := decode(path, b, cfg); err != nil {
		return nil, false, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, false, nil
}

func decode(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(jsonc.ToJSON(b), cfg)
	}
}

// Save пишет конфиг в формате по расширению пути.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	var (
		b   []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err = yaml.Marshal(c)
	default:
		b, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// Validate собирает все ошибки сразу.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Room) == "" {
		errs = append(errs, errors.New("room is required"))
	}
	if c.APIURL == "" {
		errs = append(errs, errors.New("api_url is required"))
	}
	if c.SocketURL == "" {
		errs = append(errs, errors.New("socket_url is required"))
	}
	if c.MaxChatHistory < 0 || c.MaxPlayHistory < 0 {
		errs = append(errs, errors.New("history sizes must not be negative"))
	}
	if c.ReconnectDelay < 0 {
		errs = append(errs, errors.New("reconnect_delay must not be negative"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q: want text or json", c.LogFormat))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// Logger строит slog по log_format и log_level.
func (c *Config) Logger(w io.Writer, verbose bool) *slog.Logger {
	lvl, _ := c.Level()
	if verbose {
		lvl = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (c *Config) Client() dubclient.Config {
	return dubclient.Config{
		APIURL:    c.APIURL,
		SocketURL: c.SocketURL,
		Username:  c.Credentials.Username,
		Password:  c.Credentials.Password,
	}
}

func (c *Config) BotOptions(logger *slog.Logger) bot.Options {
	return bot.Options{
		Room:           c.Room,
		CaseSensitive:  c.CommandsCaseSensitive,
		LogAllEvents:   c.LogAllEvents,
		MaxChatHistory: c.MaxChatHistory,
		MaxPlayHistory: c.MaxPlayHistory,
		ReconnectDelay: time.Duration(c.ReconnectDelay),
		Logger:         logger,
	}
}
