package config

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/betslip-tracker/internal/blobstore"
)

// EnvPrefix prefixes every environment variable, e.g. BETSLIP_BOT_BUCKET
const EnvPrefix = "BETSLIP_BOT"

// BootstrapObject is the object in the bucket holding secrets not given
// on the command line
const BootstrapObject = "config.txt"

// ErrHelp is returned by Load when usage was requested
var ErrHelp = ff.ErrHelp

// Config is the process configuration. It is built once at startup and
// not modified afterwards, except by Bootstrap.
type Config struct {
	TelegramToken string

	Scanner     string
	GeminiKey   string
	GeminiModel string
	OllamaURL   string
	OllamaModel string

	GoogleClientID     string
	GoogleClientSecret string
	RedirectURL        string
	// LinkSecret signs account-link states; empty falls back to GoogleClientSecret
	LinkSecret        string
	AcceptLegacyState bool

	Bucket      string
	BlobBackend string
	BoltPath    string
	RedisAddr   string
	FileRoot    string

	ListenAddr  string
	ShowVersion bool
}

// Load parses args and the environment
func Load(args []string) (Config, string, error) {
	fs := ff.NewFlagSet("betslip-bot")
	var (
		telegramToken = fs.StringLong("telegram-token", "", "Telegram bot token (falls back to config.txt)")
		scanner       = fs.StringLong("scanner", "gemini", "Scanner type: 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (falls back to config.txt)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama model name")
		clientID      = fs.StringLong("google-client-id", "", "Google OAuth client ID (falls back to config.txt)")
		clientSecret  = fs.StringLong("google-client-secret", "", "Google OAuth client secret (falls back to config.txt)")
		redirectURL   = fs.StringLong("redirect-url", "http://localhost:8080/oauth-callback", "Public URL of the OAuth callback")
		linkSecret    = fs.StringLong("link-secret", "", "Key signing account-link states (defaults to the Google client secret)")
		acceptLegacy  = fs.BoolLong("accept-unsigned-state", "Accept bare user IDs as link state, for links sent before states were signed")
		bucket        = fs.StringLong("bucket", "betslip-bot", "Bucket holding config.txt and user tokens")
		blobBackend   = fs.StringLong("blob-backend", "gcs", "Blob store: 'gcs', 'bolt', 'redis' or 'file'")
		boltPath      = fs.StringLong("bolt-path", "betslip-bot.db", "Database file for the bolt blob store")
		redisAddr     = fs.StringLong("redis-addr", "localhost:6379", "Address for the redis blob store")
		fileRoot      = fs.StringLong("file-root", "./blobs", "Directory for the file blob store")
		listenAddr    = fs.StringLong("listen", ":8080", "Address of the OAuth callback and metrics server")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix(EnvPrefix)); err != nil {
		return Config{}, ffhelp.Flags(fs).String(), err
	}

	cfg := Config{
		TelegramToken:      *telegramToken,
		Scanner:            *scanner,
		GeminiKey:          *geminiKey,
		GeminiModel:        *geminiModel,
		OllamaURL:          *ollamaURL,
		OllamaModel:        *ollamaModel,
		GoogleClientID:     *clientID,
		GoogleClientSecret: *clientSecret,
		RedirectURL:        *redirectURL,
		LinkSecret:         *linkSecret,
		AcceptLegacyState:  *acceptLegacy,
		Bucket:             *bucket,
		BlobBackend:        *blobBackend,
		BoltPath:           *boltPath,
		RedisAddr:          *redisAddr,
		FileRoot:           *fileRoot,
		ListenAddr:         *listenAddr,
		ShowVersion:        *showVersion,
	}
	return cfg, ffhelp.Flags(fs).String(), nil
}

// BlobOptions selects the blob store backend
func (c Config) BlobOptions() blobstore.Options {
	return blobstore.Options{
		Backend:   c.BlobBackend,
		BoltPath:  c.BoltPath,
		RedisAddr: c.RedisAddr,
		FileRoot:  c.FileRoot,
	}
}

// CallbackPath is the path component of RedirectURL
func (c Config) CallbackPath() (string, error) {
	u, err := url.Parse(c.RedirectURL)
	if err != nil {
		return "", fmt.Errorf("parsing redirect url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("redirect url %q must be absolute", c.RedirectURL)
	}
	if u.Path == "" {
		return "/", nil
	}
	return u.Path, nil
}

// StateKey is the key signing account-link states
func (c Config) StateKey() []byte {
	if c.LinkSecret != "" {
		return []byte(c.LinkSecret)
	}
	return []byte(c.GoogleClientSecret)
}

// ParseBootstrap reads key=value lines. Blank lines and lines starting
// with # are skipped.
func ParseBootstrap(data []byte) map[string]string {
	values := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return values
}

// Bootstrap fills secrets left empty by flags and environment from the
// bootstrap object. A missing object is not an error.
func (c *Config) Bootstrap(ctx context.Context, store blobstore.Store) error {
	if c.TelegramToken != "" && c.GeminiKey != "" && c.GoogleClientID != "" && c.GoogleClientSecret != "" {
		return nil
	}

	data, err := store.Get(ctx, c.Bucket, BootstrapObject)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("downloading %s: %w", BootstrapObject, err)
	}

	values := ParseBootstrap(data)
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = values[key]
		}
	}
	fill(&c.TelegramToken, "telegram_bot_token")
	fill(&c.GeminiKey, "google_gemini_api_key")
	fill(&c.GoogleClientID, "google_client_id")
	fill(&c.GoogleClientSecret, "google_client_secret")
	fill(&c.LinkSecret, "link_state_secret")
	return nil
}

// Validate reports every required setting that is still missing
func (c Config) Validate() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, errors.New("telegram token is required"))
	}
	switch c.Scanner {
	case "gemini":
		if c.GeminiKey == "" {
			errs = append(errs, errors.New("gemini key is required for the gemini scanner"))
		}
	case "ollama":
	default:
		errs = append(errs, fmt.Errorf("invalid scanner type %q", c.Scanner))
	}
	if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
		errs = append(errs, errors.New("google client id and secret are required"))
	}
	if _, err := c.CallbackPath(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
