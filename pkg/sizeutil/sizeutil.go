package sizeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Binary multiples. Catalog sizes expressed in human units always convert
// through these factors (1 GB = 1024^3 bytes).
const (
	KB int64 = 1024
	MB       = 1024 * KB
	GB       = 1024 * MB
	TB       = 1024 * GB
)

var ErrInvalidSize = errors.New("invalid_size")

// Parse converts a human size string ("500MB", "10 GB", "1TB", "2048")
// into bytes. A bare number is taken as bytes.
func Parse(value string) (int64, error) {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(value), " ", ""))
	if s == "" {
		return 0, ErrInvalidSize
	}

	unit := int64(1)
	switch {
	case strings.HasSuffix(s, "TB"):
		unit = TB
		s = strings.TrimSuffix(s, "TB")
	case strings.HasSuffix(s, "GB"):
		unit = GB
		s = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		unit = MB
		s = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		unit = KB
		s = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		s = strings.TrimSuffix(s, "B")
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n < 0 {
		return 0, ErrInvalidSize
	}
	return int64(n * float64(unit)), nil
}

// Format renders bytes in the largest whole-ish binary unit.
func Format(bytes int64) string {
	switch {
	case bytes >= TB:
		return trimZero(fmt.Sprintf("%.2f", float64(bytes)/float64(TB))) + "TB"
	case bytes >= GB:
		return trimZero(fmt.Sprintf("%.2f", float64(bytes)/float64(GB))) + "GB"
	case bytes >= MB:
		return trimZero(fmt.Sprintf("%.2f", float64(bytes)/float64(MB))) + "MB"
	case bytes >= KB:
		return trimZero(fmt.Sprintf("%.2f", float64(bytes)/float64(KB))) + "KB"
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}

// UsagePercent returns used/total as a percentage, 0 when total is 0.
func UsagePercent(used, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(used) / float64(total) * 100
}

func trimZero(s string) string {
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
