// Package auth provides authentication and authorization for the library
// server.
//
// It supports two authentication modes:
//   - "none": No authentication required, all requests use a default user ID
//   - "local": Local user database with session cookies for browser clients
//     and Bearer tokens for API clients (default)
//
// # Configuration
//
// Set AUTH_MODE environment variable to select the mode:
//
//	AUTH_MODE=local  # Default, requires registration and login
//	AUTH_MODE=none   # No auth required (single-user/dev setups)
//
// For local mode, additional configuration:
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # Auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h           # Session duration
//	AUTH_TOKEN_EXPIRY=720h              # API token expiry (30 days default)
//	AUTH_BCRYPT_COST=12                 # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true            # HTTPS-only cookies
//
// Extract the verified identity in handlers with auth.GetUserID(c); the
// circulation engine trusts this identity and performs no authentication of
// its own.
package auth
