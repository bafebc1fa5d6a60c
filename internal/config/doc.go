// Package config loads settings from a .env file, an optional YAML file and
// STUDIO_-prefixed environment variables, then validates them. It provides
// type-safe access to the settings each component needs while keeping
// configuration details separate from business logic.
package config
