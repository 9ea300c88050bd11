package model

import "errors"

// ErrInvalidDifficulty is returned by ParseDifficulty.
var ErrInvalidDifficulty = errors.New("invalid difficulty")
