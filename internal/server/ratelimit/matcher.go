package ratelimit

import (
	"net/http"
	"strings"
)

// unlimited is returned for requests that never consume tokens: the health
// probe and CORS preflights.
var unlimited = EndpointConfig{}

// MatchEndpoint returns the endpoint configuration for a request, or nil when
// the default limit applies. An exact path wins over a prefix (a Path ending in
// "/"), and the longest prefix wins among prefixes. An empty Method matches any
// method.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if method == http.MethodOptions || (path == "/health" && method == http.MethodGet) {
		match := unlimited
		return &match
	}

	var best *EndpointConfig
	for i := range configs {
		cfg := &configs[i]
		if cfg.Method != "" && cfg.Method != method {
			continue
		}
		if cfg.Path == path {
			return cfg
		}
		if strings.HasSuffix(cfg.Path, "/") && strings.HasPrefix(path, cfg.Path) {
			if best == nil || len(cfg.Path) > len(best.Path) {
				best = cfg
			}
		}
	}
	return best
}
