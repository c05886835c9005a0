package storage

import (
	"fmt"
	"math"
	"strings"
	"time"

	"slds/internal/ids"
)

const (
	jsonExt        = ".json"
	tmpExt         = ".tmp"
	timelineSuffix = "_tl"

	// DateLayout renders the creation date as DD-MM-YY
	DateLayout = "02-01-06"
)

// CreationDate reads the provider's gameCreation (epoch milliseconds) from
// a match payload and renders it in UTC. ACS and match-v4 payloads carry it
// at the top level, match-v5 payloads under info.
//
// Caches written with local-time dates name games created near midnight on
// a different day; use CreationDateIn with their zone to keep names stable.
func CreationDate(match Document) (string, error) {
	return CreationDateIn(match, time.UTC)
}

// CreationDateIn is CreationDate rendered in loc
func CreationDateIn(match Document, loc *time.Location) (string, error) {
	raw, ok := match["gameCreation"]
	if !ok {
		if info, isDoc := match["info"].(map[string]any); isDoc {
			raw, ok = info["gameCreation"]
		}
	}
	if !ok {
		return "", fmt.Errorf("%w: match payload has no gameCreation", ErrTypeMismatch)
	}
	ms, ok := toFloat(raw)
	if !ok || math.IsNaN(ms) {
		return "", fmt.Errorf("%w: gameCreation is %T", ErrTypeMismatch, raw)
	}
	return time.UnixMilli(int64(ms)).In(loc).Format(DateLayout), nil
}

// StemsFor builds the file stems of a record
func StemsFor(date string, id ids.GameID) Names {
	base := date + "_" + id.String()
	return Names{Match: base, Timeline: base + timelineSuffix}
}

// ParseStem splits a file name following {date}_{key}[_tl][.json]
func ParseStem(name string) (date, key string, timeline, ok bool) {
	stem := strings.TrimSuffix(name, jsonExt)
	parts := strings.Split(stem, "_")
	switch {
	case len(parts) == 2:
	case len(parts) == 3 && "_"+parts[2] == timelineSuffix:
		timeline = true
	default:
		return "", "", false, false
	}
	if parts[0] == "" || parts[1] == "" {
		return "", "", false, false
	}
	return parts[0], parts[1], timeline, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
