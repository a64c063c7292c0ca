package utils

import (
	"net"
	"net/http"
	"time"
)

// ClientConfig tunes the outbound HTTP client. Zero values fall back to defaults.
type ClientConfig struct {
	ClientTimeout         time.Duration // whole request
	ResponseHeaderTimeout time.Duration
	IdleConnTimeout       time.Duration
	MaxConnsPerHost       int
	MaxIdleConnsPerHost   int
	DialerTimeout         time.Duration
}

type ClientOption func(*ClientConfig)

func WithClientTimeout(d time.Duration) ClientOption {
	return func(c *ClientConfig) { c.ClientTimeout = d }
}

func WithResponseHeaderTimeout(d time.Duration) ClientOption {
	return func(c *ClientConfig) { c.ResponseHeaderTimeout = d }
}

// WithMaxConnsPerHost also sizes the idle pool so a worker pool of n reuses its connections.
func WithMaxConnsPerHost(n int) ClientOption {
	return func(c *ClientConfig) {
		c.MaxConnsPerHost = n
		c.MaxIdleConnsPerHost = n
	}
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ClientTimeout:         2 * time.Second,
		ResponseHeaderTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxConnsPerHost:       64,
		MaxIdleConnsPerHost:   64,
		DialerTimeout:         500 * time.Millisecond,
	}
}

// NewHTTPClient builds an *http.Client with keep-alives and bounded timeouts.
func NewHTTPClient(opts ...ClientOption) *http.Client {
	cfg := DefaultClientConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	def := DefaultClientConfig()
	if cfg.ClientTimeout <= 0 {
		cfg.ClientTimeout = def.ClientTimeout
	}
	if cfg.ResponseHeaderTimeout <= 0 {
		cfg.ResponseHeaderTimeout = def.ResponseHeaderTimeout
	}
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = def.MaxConnsPerHost
		cfg.MaxIdleConnsPerHost = def.MaxIdleConnsPerHost
	}

	return &http.Client{
		Timeout: cfg.ClientTimeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   cfg.DialerTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxConnsPerHost:       cfg.MaxConnsPerHost,
			MaxIdleConns:          cfg.MaxIdleConnsPerHost * 2,
			MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:       cfg.IdleConnTimeout,
			ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
			ForceAttemptHTTP2:     true,
		},
	}
}
