package config

import "errors"

var ErrUnknownKey = errors.New("unknown setting")
