package config

import (
	"errors"
	"io/fs"
)

var (
	ErrParsingConfig  = errors.New("failed to parse environment variables into config")
	ErrLoadingEnvFile = errors.New("failed to load env file")
	ErrNilPointer     = errors.New("nil pointer provided to config loader")
)

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
