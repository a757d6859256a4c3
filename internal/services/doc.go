// Package services implements the HTTP clients spotdash depends on.
//
// # Spotify Web API
//
// [SpotifyClient] is the single path to the Web API. Every request:
//   - carries the bearer token from its [Credentials] (usually a session.Controller);
//   - fails with [shared.ErrNotAuthenticated] before touching the network when there is no token;
//   - waits on a client-side [rate.Limiter];
//   - retries 429 responses with Retry-After backoff through go-retryablehttp;
//   - on 401, refreshes the credentials once and retries once.
//
// Non-2xx responses become [*APIError], whose message is read from the provider's error payload.
// [errors.Is] maps it onto [shared.ErrTokenExpired], [shared.ErrNotFound], [shared.ErrRateLimited]
// and always [shared.ErrAPIRequest]. Transport failures wrap [shared.ErrNetwork].
//
// # Companion service
//
// [APIService] calls the companion login service (see internal/authsvc). Its
// [APIService.Refresh] exchanges a refresh token through GET /refresh_token.
//
// # OAuth
//
// [NewOAuthConfig] builds an [oauth2.Config] from the spotifyauth endpoints and scopes.
// [OAuthRefresher] uses it to refresh tokens directly when no companion is deployed.
package services
