package fetch

import (
	"context"
	"net"
	"net/url"

	"golang.org/x/net/proxy"
)

// ProxyDialer returns a DialContext function routing through the given
// SOCKS5 proxy URL. HTTP proxies are handled via http.Transport.Proxy
// instead; for those, and for empty or unparseable URLs, it returns nil.
func ProxyDialer(proxyURL string, baseDial func(ctx context.Context, network, addr string) (net.Conn, error)) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if proxyURL == "" {
		return nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil || u.Scheme != "socks5" {
		return nil
	}

	var auth *proxy.Auth
	if u.User != nil {
		auth = &proxy.Auth{User: u.User.Username()}
		if p, ok := u.User.Password(); ok {
			auth.Password = p
		}
	}

	dialer, err := proxy.SOCKS5("tcp", u.Host, auth, &contextDialer{dial: baseDial})
	if err != nil {
		return nil
	}

	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext
	}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}
}

// HTTPProxyURL returns the parsed URL for http/https proxies, nil otherwise.
func HTTPProxyURL(proxyURL string) *url.URL {
	if proxyURL == "" {
		return nil
	}
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}
	return u
}

type contextDialer struct {
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

func (d *contextDialer) Dial(network, addr string) (net.Conn, error) {
	return d.dial(context.Background(), network, addr)
}

func (d *contextDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return d.dial(ctx, network, addr)
}
