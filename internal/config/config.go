package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DatabaseSchemePostgres is the postgres database scheme identifier
	DatabaseSchemePostgres = "postgres"
	// DatabaseSchemeSQLite is the sqlite database scheme identifier
	DatabaseSchemeSQLite = "sqlite"
)

// Defaults for the chat side of the game.
const (
	DefaultChatAddr   = "localhost:6667"
	DefaultChannel    = "#mining"
	DefaultNick       = "broadcaster"
	DefaultDifficulty = 1
	DefaultCooldown   = 5 * time.Second
)

type Config struct {
	ChatAddr   string        // host:port of the chat server
	Channel    string        // channel the game is played in
	Nick       string        // broadcaster identity on the chat server
	DBDialect  string        // postgres or sqlite; empty disables persistence
	DBDsn      string        // DSN string passed to GORM driver
	Difficulty int           // difficulty for newly issued transactions
	Cooldown   time.Duration // per-user submission cooldown
	Debug      bool          // if true: verbose logs; TUI output is unaffected
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s is not a number, using %d: %v\n", key, def, err)
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s is not a duration, using %s: %v\n", key, def, err)
		return def
	}
	return d
}

// parseDatabaseURL interprets DATABASE_URL and returns (dialect, dsn).
// Supported schemes: postgres, postgresql, sqlite.
func parseDatabaseURL(databaseURL string) (string, string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", "", err
	}
	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case DatabaseSchemePostgres, "postgresql":
		// GORM postgres driver accepts URL DSN as-is
		return DatabaseSchemePostgres, databaseURL, nil
	case DatabaseSchemeSQLite:
		// sqlite:///var/db/game.db or sqlite::memory:
		dsn := u.Opaque
		if dsn == "" {
			dsn = u.Path
		}
		if dsn == "" {
			return "", "", fmt.Errorf("sqlite DATABASE_URL is missing a path")
		}
		return DatabaseSchemeSQLite, dsn, nil
	default:
		return "", "", fmt.Errorf("unsupported DATABASE_URL scheme: %s", u.Scheme)
	}
}

func Load() Config {
	cfg := Config{
		ChatAddr:   getenv("CHAT_ADDR", DefaultChatAddr),
		Channel:    NormalizeChannel(getenv("CHAT_CHANNEL", DefaultChannel)),
		Nick:       getenv("CHAT_NICK", DefaultNick),
		Difficulty: getenvInt("DIFFICULTY", DefaultDifficulty),
		Cooldown:   getenvDuration("SUBMIT_COOLDOWN", DefaultCooldown),
		Debug:      getenvBool("DEBUG", false),
	}

	if dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL")); dbURL != "" {
		if dialect, dsn, err := parseDatabaseURL(dbURL); err == nil {
			cfg.DBDialect = dialect
			cfg.DBDsn = dsn
		} else {
			fmt.Fprintf(os.Stderr, "warning: invalid DATABASE_URL, disabling persistence: %v\n", err)
		}
	}

	return cfg
}

// NormalizeChannel makes sure a channel name carries its leading '#', so
// "mining" and "#mining" configure the same channel.
func NormalizeChannel(channel string) string {
	if channel == "" || strings.HasPrefix(channel, "#") {
		return channel
	}
	return "#" + channel
}

func (c Config) String() string {
	return fmt.Sprintf("chat=%s channel=%s nick=%s db=%s", c.ChatAddr, c.Channel, c.Nick, c.DBDialect)
}

// DebugString returns a human-friendly configuration string with masked secrets.
func (c Config) DebugString() string {
	return fmt.Sprintf(
		"chat=%s channel=%s nick=%s difficulty=%d cooldown=%s db=%s dsn=%s",
		c.ChatAddr,
		c.Channel,
		c.Nick,
		c.Difficulty,
		c.Cooldown,
		c.DBDialect,
		maskDSN(c.DBDialect, c.DBDsn),
	)
}

func maskDSN(dialect, dsn string) string {
	switch strings.ToLower(dialect) {
	case DatabaseSchemePostgres:
		if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
			if u.User != nil {
				username := u.User.Username()
				u.User = url.User(username)
			}
			return u.String()
		}
		// Fallback for DSN as key-value list
		parts := strings.Fields(dsn)
		for i, p := range parts {
			lower := strings.ToLower(p)
			if strings.HasPrefix(lower, "password=") {
				parts[i] = "password=***"
			}
		}
		return strings.Join(parts, " ")
	default:
		return dsn
	}
}
