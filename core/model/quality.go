package model

import "errors"

type Quality string

const (
	QualityLow  Quality = "low"
	QualityHigh Quality = "high"
)

var ErrUnknownQuality = errors.New("unknown quality tier")

var allQualities = []Quality{QualityHigh, QualityLow}

// Qualities returns all known tiers, highest first.
func Qualities() []Quality {
	return allQualities
}

// ParseQuality accepts a tier name or its resolution alias.
func ParseQuality(s string) (Quality, error) {
	switch s {
	case "low", "360", "360p":
		return QualityLow, nil
	case "high", "1080", "1080p":
		return QualityHigh, nil
	}

	return "", ErrUnknownQuality
}

// Resolution maps a tier to the encoding profile name used in storage paths.
func (q Quality) Resolution() string {
	switch q {
	case QualityLow:
		return "360p"
	default:
		return "1080p"
	}
}
