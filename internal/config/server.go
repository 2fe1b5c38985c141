package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// ServerConfig is the HTTP server's environment.
type ServerConfig struct {
	Port        string        `env:"API_PORT" envDefault:"8080"`
	Env         string        `env:"API_ENV" envDefault:"development"`
	DataDir     string        `env:"DATA_DIR" envDefault:"./data"`
	StaticDir   string        `env:"STATIC_DIR" envDefault:"./web/dist"`
	CORSOrigins string        `env:"CORS_ORIGINS" envDefault:"*"`
	CacheTTL    time.Duration `env:"CACHE_TTL" envDefault:"1h"`
	// DefaultConfig is an optional run config whose fields back every API request.
	DefaultConfig string `env:"BACKTEST_CONFIG"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	return cfg, env.Parse(&cfg)
}

func (c ServerConfig) Production() bool { return strings.EqualFold(c.Env, "production") }

// Origins splits CORS_ORIGINS on commas.
func (c ServerConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
