package config

import "errors"

// Validation errors returned by Config.Validate.
var (
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	ErrInvalidTimeout = errors.New("invalid download timeout: must be positive")

	// ErrInvalidRate is returned for a negative download rate. Zero means
	// unlimited.
	ErrInvalidRate = errors.New("invalid download rate: must be non-negative")

	ErrInvalidEngine = errors.New("invalid OCR engine: want tesseract, documentai or none")

	ErrInvalidScale = errors.New("invalid preprocess scale: must be at least 1")

	ErrInvalidPageSegMode = errors.New("invalid tesseract page segmentation mode")

	// ErrInvalidCorrection is returned for a correction with an empty from
	// pattern.
	ErrInvalidCorrection = errors.New("invalid correction: from must not be empty")
)

var (
	// ErrConfigNotFound is returned when an explicitly named config file
	// does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrConfigExists is returned by WriteFile rather than overwriting.
	ErrConfigExists = errors.New("configuration file already exists")
)
