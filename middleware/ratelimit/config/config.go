// Package config carrega a configuração do gateway: arquivo YAML opcional,
// depois variáveis de ambiente por cima, depois validação.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalid       = errors.New("invalid config")
	ErrUnknownPolicy = errors.New("unknown rate limit policy")
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	AlgorithmFixedWindow = "fixed-window"
	AlgorithmTokenBucket = "token-bucket"

	KeyByIP   = "ip"
	KeyByUser = "user"
)

type Config struct {
	ListenAddr  string `yaml:"listen_addr"`
	UpstreamURL string `yaml:"upstream_url"`

	// KeyHeader, se presente na requisição, vira a chave (ex: X-Api-Key).
	KeyHeader string `yaml:"key_header"`
	// UserHeader carrega o id do usuário autenticado, injetado pela camada de sessão.
	UserHeader string `yaml:"user_header"`
	// TrustUserHeader só deve ser ligado quando quem está na frente do gateway
	// remove/preenche UserHeader. Desligado, políticas por usuário usam o IP.
	TrustUserHeader bool `yaml:"trust_user_header"`
	TrustXFF        bool `yaml:"trust_xff"`
	AddHeaders      bool `yaml:"add_headers"`
	// RetryAfter fixo; 0 usa o tempo até o fim da janela.
	RetryAfter time.Duration `yaml:"retry_after"`

	Backend     Backend           `yaml:"backend"`
	Stats       Stats             `yaml:"stats"`
	Concurrency Concurrency       `yaml:"concurrency"`
	Policies    map[string]Policy `yaml:"policies"`
	Routes      []Route           `yaml:"routes"`
}

type Backend struct {
	Kind       string        `yaml:"kind"`
	MaxKeys    int           `yaml:"max_keys"`
	SweepEvery time.Duration `yaml:"sweep_every"`
	Redis      Redis         `yaml:"redis"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type Stats struct {
	Enabled   bool          `yaml:"enabled"`
	Prefix    string        `yaml:"prefix"`
	TTL       time.Duration `yaml:"ttl"`
	Bucket    string        `yaml:"bucket"`
	TrackKeys bool          `yaml:"track_keys"`
}

type Concurrency struct {
	Max     int           `yaml:"max"`
	Timeout time.Duration `yaml:"timeout"`
}

type Policy struct {
	Limit     int           `yaml:"limit"`
	Window    time.Duration `yaml:"window"`
	Algorithm string        `yaml:"algorithm"`
	Key       string        `yaml:"key"`
}

// policyOverride é a forma de uma política no arquivo: campo ausente mantém
// o valor padrão da política de mesmo nome.
type policyOverride struct {
	Limit     *int           `yaml:"limit"`
	Window    *time.Duration `yaml:"window"`
	Algorithm *string        `yaml:"algorithm"`
	Key       *string        `yaml:"key"`
}

func (o policyOverride) apply(p Policy) Policy {
	if o.Limit != nil {
		p.Limit = *o.Limit
	}
	if o.Window != nil {
		p.Window = *o.Window
	}
	if o.Algorithm != nil {
		p.Algorithm = *o.Algorithm
	}
	if o.Key != nil {
		p.Key = *o.Key
	}
	return p
}

// Route liga um endpoint do marketplace a uma política.
type Route struct {
	Method string `yaml:"method"`
	Path   string `yaml:"path"`
	// Prefix casa qualquer caminho que comece com Path.
	Prefix bool   `yaml:"prefix"`
	Policy string `yaml:"policy"`
	// MaxInFlight > 0 limita requisições simultâneas na rota (uploads).
	MaxInFlight int `yaml:"max_in_flight"`
}

// Default devolve as políticas dos endpoints públicos do marketplace.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		UserHeader: "X-User-Id",
		Backend: Backend{
			Kind:       BackendMemory,
			MaxKeys:    100_000,
			SweepEvery: time.Minute,
			Redis:      Redis{Prefix: "ratelimit:window"},
		},
		Stats: Stats{
			Prefix: "ratelimit:stats",
			TTL:    24 * time.Hour,
			Bucket: "minute",
		},
		Concurrency: Concurrency{Max: 100},
		Policies: map[string]Policy{
			"login":          {Limit: 10, Window: 15 * time.Minute, Key: KeyByIP},
			"register":       {Limit: 5, Window: time.Hour, Key: KeyByIP},
			"password-reset": {Limit: 3, Window: time.Hour, Key: KeyByIP},
			"contact":        {Limit: 5, Window: time.Hour, Key: KeyByIP},
			"upload":         {Limit: 20, Window: time.Hour, Key: KeyByUser},
			"api":            {Limit: 300, Window: time.Minute, Key: KeyByIP},
		},
		Routes: []Route{
			{Method: "POST", Path: "/api/auth/login", Policy: "login"},
			{Method: "POST", Path: "/api/auth/register", Policy: "register"},
			{Method: "POST", Path: "/api/auth/forgot-password", Policy: "password-reset"},
			{Method: "POST", Path: "/api/auth/reset-password", Policy: "password-reset"},
			{Method: "POST", Path: "/api/contact", Policy: "contact"},
			{Method: "POST", Path: "/api/upload", Policy: "upload", MaxInFlight: 10},
			{Path: "/api/", Prefix: true, Policy: "api"},
		},
	}
}

// Load aplica Default, o arquivo (se path != "") e o ambiente, nessa ordem.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		defaults := maps.Clone(cfg.Policies)
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		// o yaml zera os campos omitidos de cada política; refaz por campo.
		var file struct {
			Policies map[string]policyOverride `yaml:"policies"`
		}
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.Policies = defaults
		for name, o := range file.Policies {
			cfg.Policies[name] = o.apply(cfg.Policies[name])
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Backend.Kind = strings.ToLower(strings.TrimSpace(c.Backend.Kind))
	if c.Backend.Kind == "" {
		c.Backend.Kind = BackendMemory
	}
	for name, p := range c.Policies {
		if p.Algorithm == "" {
			p.Algorithm = AlgorithmFixedWindow
		}
		if p.Key == "" {
			p.Key = KeyByIP
		}
		c.Policies[name] = p
	}
}

func (c Config) Validate() error {
	var errs []error
	switch c.Backend.Kind {
	case BackendMemory:
	case BackendRedis:
		if strings.TrimSpace(c.Backend.Redis.Addr) == "" {
			errs = append(errs, errors.New("backend.redis.addr is required when backend.kind=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("backend.kind must be %q or %q, got %q", BackendMemory, BackendRedis, c.Backend.Kind))
	}
	if c.Stats.Enabled && strings.TrimSpace(c.Backend.Redis.Addr) == "" {
		errs = append(errs, errors.New("backend.redis.addr is required when stats.enabled=true"))
	}
	if c.Concurrency.Max < 0 {
		errs = append(errs, errors.New("concurrency.max must be >= 0"))
	}

	for _, name := range c.PolicyNames() {
		p := c.Policies[name]
		if p.Limit < 0 {
			errs = append(errs, fmt.Errorf("policy %s: limit must be >= 0", name))
		}
		if p.Window <= 0 {
			errs = append(errs, fmt.Errorf("policy %s: window must be > 0", name))
		}
		switch p.Algorithm {
		case "", AlgorithmFixedWindow:
		case AlgorithmTokenBucket:
			if c.Backend.Kind == BackendRedis {
				errs = append(errs, fmt.Errorf("policy %s: %s is only available with the memory backend", name, AlgorithmTokenBucket))
			}
		default:
			errs = append(errs, fmt.Errorf("policy %s: unknown algorithm %q", name, p.Algorithm))
		}
		if p.Key != "" && p.Key != KeyByIP && p.Key != KeyByUser {
			errs = append(errs, fmt.Errorf("policy %s: key must be %q or %q", name, KeyByIP, KeyByUser))
		}
	}

	for i, r := range c.Routes {
		if !strings.HasPrefix(r.Path, "/") {
			errs = append(errs, fmt.Errorf("route %d: path must start with /", i))
		}
		if r.Policy == "" {
			continue
		}
		if _, ok := c.Policies[r.Policy]; !ok {
			errs = append(errs, fmt.Errorf("route %d (%s): %w %q", i, r.Path, ErrUnknownPolicy, r.Policy))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// PolicyNames devolve os nomes em ordem alfabética.
func (c Config) PolicyNames() []string {
	names := make([]string, 0, len(c.Policies))
	for name := range c.Policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
