package config

import "errors"

var (
	// ErrInvalidConfig means a value failed Validate; the message names the key.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig means a source (.env, YAML file, env) could not be read.
	ErrLoadConfig = errors.New("load config failed")
)
