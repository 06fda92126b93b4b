package feeders

import (
	"errors"
)

// Static error definitions for feeders
var (
	ErrUnsupportedFileType = errors.New("unsupported config file type")
	ErrFileRead            = errors.New("failed to read config file")
	ErrFileDecode          = errors.New("failed to decode config file")
	ErrEnvEmptyPrefix      = errors.New("env: prefix cannot be empty")
)
