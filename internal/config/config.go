package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the platform binaries.
// All values must come from env (or env-file loaded by the process
// runner). No business logic should depend on raw environment
// variables.
//
// Load parses every section; each binary then calls the Require*
// methods for the sections it actually uses.
type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	Auth   AuthConfig
	Edge   EdgeConfig
	Policy PolicyConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	// JWTSecret is the symmetric signing key shared by the issuer, the
	// gateway and every service. Injected at deploy time.
	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration
}

type EdgeConfig struct {
	// Secret is the gateway capability stamped as X-Gateway-Token.
	// Empty means services trust identity headers unconditionally,
	// which is only safe when they are reachable solely through the
	// gateway.
	Secret string

	// Upstreams maps path prefixes to service base URLs, e.g.
	// "/v1/cafeterias=http://catalog:8081,/v1/history=http://history:8082".
	Upstreams map[string]string

	// PublicPaths lists prefixes that pass the guards with no
	// credentials at all. Entries may be method-qualified
	// ("GET /v1/cafeterias").
	PublicPaths []string
}

type PolicyConfig struct {
	// File is the route policy YAML consumed by each service.
	File string
}

// DefaultPublicPaths covers login/registration, the read-only catalog
// listing, health and docs endpoints.
var DefaultPublicPaths = []string{
	"/healthz",
	"/v1/auth/login",
	"/v1/auth/register",
	"GET /v1/cafeterias",
	"/docs",
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port = intOr("DB_PORT", 5432)
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port = intOr("REDIS_PORT", 6379)

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.TokenTTL = durationOr("JWT_TOKEN_TTL", 0)

	c.Edge.Secret = os.Getenv("EDGE_SECRET")
	c.Edge.Upstreams = parseUpstreams(os.Getenv("EDGE_UPSTREAMS"))
	c.Edge.PublicPaths = parsePublicPaths(os.Getenv("PUBLIC_PATHS"))

	c.Policy.File = strings.TrimSpace(os.Getenv("POLICY_FILE"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the sections every binary needs.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() && c.Auth.JWTIssuer == "" {
		errs = append(errs, errors.New("JWT_ISSUER is required in production"))
	}
	if c.Auth.TokenTTL <= 0 {
		// Default: short-lived tokens; clients refresh.
		c.Auth.TokenTTL = time.Hour
	}

	if c.IsProduction() && c.Edge.Secret == "" {
		// Without the capability header any direct caller can forge
		// identity headers; production must set it.
		errs = append(errs, errors.New("EDGE_SECRET is required in production"))
	}

	return joinErrors(errs)
}

// RequireDB validates the Postgres section for binaries that use it.
func (c *Config) RequireDB() error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return joinErrors(errs)
}

// RequireRedis validates the Redis section for binaries that use it.
func (c *Config) RequireRedis() error {
	var errs []error
	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}
	return joinErrors(errs)
}

// RequireUpstreams validates the gateway routing table.
func (c *Config) RequireUpstreams() error {
	if len(c.Edge.Upstreams) == 0 {
		return errors.New("EDGE_UPSTREAMS is required (prefix=url pairs, comma separated)")
	}
	return nil
}

// RequirePolicy validates the route policy location for services.
func (c *Config) RequirePolicy() error {
	if c.Policy.File == "" {
		return errors.New("POLICY_FILE is required")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// PublicPathList returns the configured allow-list, falling back to
// the defaults.
func (c Config) PublicPathList() []string {
	if len(c.Edge.PublicPaths) > 0 {
		return c.Edge.PublicPaths
	}
	return DefaultPublicPaths
}

func parseUpstreams(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		prefix, u, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		prefix = strings.TrimSpace(prefix)
		u = strings.TrimSpace(u)
		if prefix != "" && u != "" {
			out[prefix] = u
		}
	}
	return out
}

func parsePublicPaths(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []string
	for _, entry := range strings.Split(raw, ",") {
		if e := strings.TrimSpace(entry); e != "" {
			out = append(out, e)
		}
	}
	return out
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func intOr(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durationOr(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
