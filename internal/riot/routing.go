package riot

import (
	"fmt"
	"strconv"
	"strings"
)

var platformRouting = map[string]string{
	"NA1":  "americas",
	"BR1":  "americas",
	"LA1":  "americas",
	"LA2":  "americas",
	"EUW1": "europe",
	"EUN1": "europe",
	"TR1":  "europe",
	"RU":   "europe",
	"ME1":  "europe",
	"KR":   "asia",
	"JP1":  "asia",
	"OC1":  "sea",
	"PH2":  "sea",
	"SG2":  "sea",
	"TH2":  "sea",
	"TW2":  "sea",
	"VN2":  "sea",
}

// RoutingFor maps a platform (EUW1, KR, ...) to its regional route
func RoutingFor(platform string) (string, error) {
	routing, ok := platformRouting[strings.ToUpper(platform)]
	if !ok {
		return "", fmt.Errorf("unknown platform %q", platform)
	}
	return routing, nil
}

// MatchID builds the match-v5 id "EUW1_123"
func MatchID(platform string, gameID int64) string {
	return strings.ToUpper(platform) + "_" + strconv.FormatInt(gameID, 10)
}

// SplitMatchID splits "EUW1_123" into its platform and numeric game id
func SplitMatchID(matchID string) (string, int64, error) {
	platform, raw, ok := strings.Cut(matchID, "_")
	if !ok || platform == "" {
		return "", 0, fmt.Errorf("malformed match id %q", matchID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed match id %q: %w", matchID, err)
	}
	return platform, id, nil
}
