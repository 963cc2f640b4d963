// Package auth provides users, password hashing, and JWT access tokens
// for the Greenhouse Core API.
//
// Passwords are hashed with Argon2id and stored in PHC string format.
// Access tokens are HS256 JWTs carrying the username and role; they are
// validated by signature alone so authenticated requests never hit the
// database.
//
// Three roles exist: admin (full control), senior (operate devices,
// read everything), junior (read-only). On first boot, SeedAdmin
// creates an admin account with a generated one-time password.
package auth
