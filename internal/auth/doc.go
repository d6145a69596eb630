// Package auth authenticates the identity provider calling the SCIM endpoints.
//
// The provider sends a shared secret as a bearer token. The bridge holds that
// secret either in plain form, compared in constant time, or as an argon2id
// hash. Hash verification is expensive, so verified tokens are remembered as
// sha256 digests in a bounded cache that expires entries after a configured TTL.
//
// Example usage:
//
//	svc, err := auth.NewService(cfg.SCIM)
//	app.Use("/scim/v2", auth.RequireBearer(svc))
package auth
