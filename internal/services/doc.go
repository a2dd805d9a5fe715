// Package services implements [GatewayService], the HTTP client for the local API gateway
// that fronts the music platform's private API.
//
// # Requests
//
// Every endpoint is a GET with query parameters. The client appends a "time" parameter
// (unix seconds) to each call to defeat the gateway's response cache, and the caller's
// session token is passed explicitly as the "cookie" parameter: the client holds no session.
//
// # Pacing
//
// When constructed with a positive requests-per-second value, the client waits on a
// [rate.Limiter] before each request. This is independent of the platform's own
// rate-limit signal (code 405), which callers interpret.
//
// # Error Handling
//
//   - [shared.ErrAPIRequest] : the request could not be built or sent, or the body could not be read
//   - [shared.ErrMalformedResponse] : the body is not the JSON shape the endpoint promises
//
// Business status codes (200, 405, 800-803, -100) are returned in the decoded response
// for callers to interpret; HTTP status codes are ignored because the gateway mirrors the
// platform code into the HTTP status.
package services
