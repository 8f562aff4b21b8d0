// Package config loads buildmuxd's configuration from YAML, with an
// optional .env overlay and optional live reload of the fields that
// are safe to change without a restart.
package config
