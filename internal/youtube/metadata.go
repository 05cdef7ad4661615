package youtube

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	_ "github.com/bdandy/go-socks4"
	kkdai "github.com/kkdai/youtube/v2"
	"golang.org/x/net/proxy"
)

type VideoInfo struct {
	ID       string
	Title    string
	Author   string
	Duration time.Duration
}

// MetadataClient fetches video details without downloading media.
type MetadataClient struct {
	yt kkdai.Client
}

// NewMetadataClient builds a client. proxyURL may be empty, http(s)://, socks5:// or socks4://.
func NewMetadataClient(proxyURL string, timeout time.Duration) (*MetadataClient, error) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	transport, err := proxyTransport(proxyURL)
	if err != nil {
		return nil, err
	}
	return &MetadataClient{
		yt: kkdai.Client{HTTPClient: &http.Client{Timeout: timeout, Transport: transport}},
	}, nil
}

func proxyTransport(raw string) (http.RoundTripper, error) {
	if raw == "" {
		return http.DefaultTransport, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return &http.Transport{Proxy: http.ProxyURL(u)}, nil
	default:
		dialer, err := proxy.FromURL(u, &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 10 * time.Second})
		if err != nil {
			return nil, fmt.Errorf("proxy dialer error: %w", err)
		}
		return &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := dialer.(proxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			},
		}, nil
	}
}

func (c *MetadataClient) Lookup(ctx context.Context, videoID string) (VideoInfo, error) {
	v, err := c.yt.GetVideoContext(ctx, videoID)
	if err != nil {
		return VideoInfo{}, fmt.Errorf("failed to fetch video %s: %w", videoID, err)
	}
	return VideoInfo{
		ID:       v.ID,
		Title:    v.Title,
		Author:   v.Author,
		Duration: v.Duration,
	}, nil
}
