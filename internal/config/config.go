// Package config loads the captcha server configuration from environment
// variables using struct tags. All values have working defaults so the server
// can start with an empty environment.
package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config holds every tunable of the captcha server: the challenge geometry
// consumed by the generator and renderer, the expiration window owned by each
// session, and the transport settings consumed by the WebSocket server.
type Config struct {
	// ListenAddr is the address the HTTP/WebSocket listener binds to.
	ListenAddr string `env:"LISTEN_ADDR,default=:1337"`

	// ExpirationTime is how long a challenge (and any token issued from it)
	// stays valid after the most recent challenge request.
	ExpirationTime time.Duration `env:"CAPTCHA_EXPIRATION,default=2m"`

	// Width and Height are the challenge frame dimensions in pixels.
	Width  int `env:"CAPTCHA_WIDTH,default=150"`
	Height int `env:"CAPTCHA_HEIGHT,default=75"`

	// TextX and TextY anchor the first glyph of the code on the frame.
	TextX int `env:"CAPTCHA_TEXT_X,default=40"`
	TextY int `env:"CAPTCHA_TEXT_Y,default=35"`

	// LineWidth is the length in pixels of the obfuscation line drawn
	// across the code.
	LineWidth int `env:"CAPTCHA_LINE_WIDTH,default=100"`

	// FontSize is the glyph font size in pixels.
	FontSize float64 `env:"CAPTCHA_FONT_SIZE,default=32"`

	// Secured enables TLS on the listener. TLSKeyPath and TLSCertPath must
	// be set when Secured is true.
	Secured     bool   `env:"CAPTCHA_SECURED,default=false"`
	TLSKeyPath  string `env:"CAPTCHA_TLS_KEY"`
	TLSCertPath string `env:"CAPTCHA_TLS_CERT"`

	// Transport tuning.
	WorkerPoolSize int           `env:"WORKER_POOL_SIZE,default=256"`
	MaxConnections int           `env:"MAX_CONNECTIONS,default=100000"`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT,default=10s"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT,default=10s"`
}

// Load populates a Config from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used when no environment overrides are
// present. It is handy for tests and for embedding the server as a library.
func Default() Config {
	return Config{
		ListenAddr:     ":1337",
		ExpirationTime: 2 * time.Minute,
		Width:          150,
		Height:         75,
		TextX:          40,
		TextY:          35,
		LineWidth:      100,
		FontSize:       32,
		WorkerPoolSize: 256,
		MaxConnections: 100000,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
	}
}

// Validate rejects configurations the renderer or session cannot work with.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("config: frame dimensions must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.FontSize <= 0 {
		return fmt.Errorf("config: font size must be positive, got %v", c.FontSize)
	}
	if c.ExpirationTime <= 0 {
		return fmt.Errorf("config: expiration time must be positive, got %v", c.ExpirationTime)
	}
	if c.Secured && (c.TLSKeyPath == "" || c.TLSCertPath == "") {
		return fmt.Errorf("config: secured mode requires CAPTCHA_TLS_KEY and CAPTCHA_TLS_CERT")
	}
	return nil
}
