// Package requestid tags every HTTP request with an X-Request-ID and exposes
// it through the request context and the logger.
package requestid
