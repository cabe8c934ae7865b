package transport

import (
	"net"
	"net/http"
	"time"
)

// Options настройки исходящего HTTP-клиента.
type Options struct {
	// Timeout общий таймаут запроса; по его истечении вызов считается неуспешным.
	Timeout         time.Duration
	DialTimeout     time.Duration
	MaxIdleConns    int
	MaxConnsPerHost int
}

// NewHTTPClient возвращает http.Client, общий для LLM-бэкенда, каталога и шлюза сообщений.
func NewHTTPClient(opts Options) *http.Client {
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.MaxIdleConns == 0 {
		opts.MaxIdleConns = 100
	}
	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   opts.DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          opts.MaxIdleConns,
			MaxConnsPerHost:       opts.MaxConnsPerHost,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   opts.DialTimeout,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}
