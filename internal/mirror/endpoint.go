package mirror

import (
	"fmt"
	"net/url"
	"strings"
)

// WatchURL turns a mirror address into its websocket endpoint. http and https
// map to ws and wss, and /ws is appended unless the path already ends in it.
func WatchURL(endpoint string) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("mirror address must include scheme and host")
	}
	wsURL := *parsed
	switch strings.ToLower(parsed.Scheme) {
	case "https":
		wsURL.Scheme = "wss"
	case "http":
		wsURL.Scheme = "ws"
	case "wss", "ws":
	default:
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	path := strings.TrimRight(wsURL.Path, "/")
	if !strings.HasSuffix(path, "/ws") {
		path += "/ws"
	}
	wsURL.Path = path
	wsURL.RawPath = ""
	return wsURL.String(), nil
}
