// Package auth issues and validates the HMAC-signed bearer tokens that guard
// the HTTP API when a signing secret is configured.
package auth
