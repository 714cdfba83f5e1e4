package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTP_ADDR        string
	UPSTREAM_URL     string
	POLICY_FILE      string
	LOG_LEVEL        string
	LOG_FORMAT       string
	SHUTDOWN_TIMEOUT string
	READINESS_STRICT string

	DENIAL_STORE string
	SQLITE_PATH  string

	ADMIN_TOKEN_FILE  string
	BOT_TOKEN_FILE    string
	COOKIE_PREFIX     string
	SESSION_CACHE_TTL string

	ARTICLE_PATH       string
	SCRIPT_PATH        string
	API_PATH           string
	SPECIAL_NAMESPACES string
}

func LoadConfig() (Config, error) {
	var cfg Config

	//HTTP_ADDR Parsing
	cfg.HTTP_ADDR = os.Getenv("HTTP_ADDR")
	if cfg.HTTP_ADDR == "" {
		cfg.HTTP_ADDR = "0.0.0.0:8080"
	}

	//UPSTREAM_URL, empty answers 502 for everything that passes the gates
	cfg.UPSTREAM_URL = strings.TrimSpace(os.Getenv("UPSTREAM_URL"))

	//POLICY_FILE, empty uses the built-in defaults
	cfg.POLICY_FILE = strings.TrimSpace(os.Getenv("POLICY_FILE"))

	//LOG_LEVEL Parsing
	cfg.LOG_LEVEL = os.Getenv("LOG_LEVEL")
	if cfg.LOG_LEVEL == "" {
		cfg.LOG_LEVEL = "info"
	}

	//LOG_FORMAT Parsing
	cfg.LOG_FORMAT = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	switch cfg.LOG_FORMAT {
	case "":
		cfg.LOG_FORMAT = "text"
	case "text", "json":
	default:
		return Config{}, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LOG_FORMAT)
	}

	//SHUTDOWN_TIMEOUT Parsing
	cfg.SHUTDOWN_TIMEOUT = os.Getenv("SHUTDOWN_TIMEOUT")
	if cfg.SHUTDOWN_TIMEOUT == "" {
		cfg.SHUTDOWN_TIMEOUT = "10"
	}
	if n, err := strconv.Atoi(cfg.SHUTDOWN_TIMEOUT); err != nil || n < 0 {
		return Config{}, fmt.Errorf("SHUTDOWN_TIMEOUT must be a non-negative number of seconds, got %q", cfg.SHUTDOWN_TIMEOUT)
	}

	//READINESS_STRICT
	cfg.READINESS_STRICT = os.Getenv("READINESS_STRICT")
	if cfg.READINESS_STRICT == "" {
		cfg.READINESS_STRICT = "true"
	}
	if _, err := strconv.ParseBool(cfg.READINESS_STRICT); err != nil {
		return Config{}, fmt.Errorf("READINESS_STRICT must be a boolean, got %q", cfg.READINESS_STRICT)
	}

	//DENIAL_STORE Parsing
	cfg.DENIAL_STORE = strings.ToLower(strings.TrimSpace(os.Getenv("DENIAL_STORE")))
	switch cfg.DENIAL_STORE {
	case "":
		cfg.DENIAL_STORE = "memory"
	case "memory", "sqlite":
	default:
		return Config{}, fmt.Errorf("DENIAL_STORE must be memory or sqlite, got %q", cfg.DENIAL_STORE)
	}

	cfg.SQLITE_PATH = os.Getenv("SQLITE_PATH")
	if cfg.SQLITE_PATH == "" {
		cfg.SQLITE_PATH = "./data/crawlerprotection.sqlite"
	}

	cfg.ADMIN_TOKEN_FILE = strings.TrimSpace(os.Getenv("ADMIN_TOKEN_FILE"))
	cfg.BOT_TOKEN_FILE = strings.TrimSpace(os.Getenv("BOT_TOKEN_FILE"))
	cfg.COOKIE_PREFIX = strings.TrimSpace(os.Getenv("COOKIE_PREFIX"))

	//SESSION_CACHE_TTL Parsing, seconds a verified session verdict is reused
	cfg.SESSION_CACHE_TTL = os.Getenv("SESSION_CACHE_TTL")
	if cfg.SESSION_CACHE_TTL == "" {
		cfg.SESSION_CACHE_TTL = "60"
	}
	if n, err := strconv.Atoi(cfg.SESSION_CACHE_TTL); err != nil || n <= 0 {
		return Config{}, fmt.Errorf("SESSION_CACHE_TTL must be a positive number of seconds, got %q", cfg.SESSION_CACHE_TTL)
	}

	//wiki layout
	cfg.ARTICLE_PATH = os.Getenv("ARTICLE_PATH")
	if cfg.ARTICLE_PATH == "" {
		cfg.ARTICLE_PATH = "/wiki/"
	}
	cfg.SCRIPT_PATH = os.Getenv("SCRIPT_PATH")
	if cfg.SCRIPT_PATH == "" {
		cfg.SCRIPT_PATH = "/index.php"
	}
	cfg.API_PATH = os.Getenv("API_PATH")
	if cfg.API_PATH == "" {
		cfg.API_PATH = "/api.php"
	}
	cfg.SPECIAL_NAMESPACES = os.Getenv("SPECIAL_NAMESPACES")
	if strings.TrimSpace(cfg.SPECIAL_NAMESPACES) == "" {
		cfg.SPECIAL_NAMESPACES = "Special"
	}

	return cfg, nil
}

// ShutdownTimeout is only valid on a Config returned by LoadConfig.
func (c Config) ShutdownTimeout() time.Duration {
	n, _ := strconv.Atoi(c.SHUTDOWN_TIMEOUT)
	return time.Duration(n) * time.Second
}

// SessionCacheTTL is only valid on a Config returned by LoadConfig.
func (c Config) SessionCacheTTL() time.Duration {
	n, _ := strconv.Atoi(c.SESSION_CACHE_TTL)
	return time.Duration(n) * time.Second
}

func (c Config) ReadinessStrict() bool {
	b, _ := strconv.ParseBool(c.READINESS_STRICT)
	return b
}

// SpecialNamespaces splits SPECIAL_NAMESPACES on commas. Localized wikis
// list their own name next to "Special", e.g. "Special,Spezial".
func (c Config) SpecialNamespaces() []string {
	var out []string
	for _, ns := range strings.Split(c.SPECIAL_NAMESPACES, ",") {
		if ns = strings.TrimSpace(ns); ns != "" {
			out = append(out, ns)
		}
	}
	return out
}
