// Package config holds deedscan's settings: defaults, the YAML file and
// validation.
package config
