// Package graphhttp implements driven.Transport over net/http.
//
// Requests are authenticated with the OAuth2 client credentials flow and
// throttled by a token bucket that also honours Retry-After hints.
package graphhttp
