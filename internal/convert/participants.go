package convert

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"slds/internal/dataset"
	"slds/internal/storage"
)

// Columns produced by ParticipantConverter; week only when the league has one
var (
	headColumns = []string{"gameId", "realm", "gameCreation", "gameDuration", "gameVersion"}
	rowColumns  = []string{
		"participantId", "teamId", "side", "team", "position", "player", "championId", "champion", "win",
		"kills", "deaths", "assists", "cs", "goldEarned", "visionScore",
		"goldAt10", "goldAt15", "csAt10", "csAt15",
	}
)

var v5Positions = map[string]string{
	"TOP":     "TOP",
	"JUNGLE":  "JUNGLE",
	"MIDDLE":  "MID",
	"BOTTOM":  "BOT",
	"UTILITY": "SUPPORT",
}

// ChampionNames resolves numeric champion ids. *riot.ChampionRegistry implements it.
type ChampionNames interface {
	Name(id int) string
}

// ParticipantConverter produces one row per participant. It reads both the
// ACS/match-v4 layout (participants + participantIdentities at the top
// level) and the match-v5 layout (everything under info).
type ParticipantConverter struct {
	// Champions fills the champion column, left empty when nil
	Champions ChampionNames
}

// Columns returns the column order for a league with or without a week
func (ParticipantConverter) Columns(hasWeek bool) []string {
	cols := append([]string(nil), headColumns...)
	if hasWeek {
		cols = append(cols, "week")
	}
	return append(cols, rowColumns...)
}

// participant is the layout-independent view of one player
type participant struct {
	id       int
	teamID   int
	champion float64
	win      bool
	kills    float64
	deaths   float64
	assists  float64
	cs       float64
	gold     float64
	vision   float64
	position string
	name     string
}

func (c ParticipantConverter) Convert(ctx context.Context, in Input) (*dataset.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	game, parts, err := parseMatch(in.Match)
	if err != nil {
		return nil, err
	}
	frames := timelineFrames(in.Timeline)

	t := dataset.NewTable(c.Columns(in.HasWeek)...)
	for i, p := range parts {
		row := map[string]string{
			"gameId":        formatNumber(number(game, "gameId")),
			"realm":         str(game, "platformId"),
			"gameCreation":  formatNumber(number(game, "gameCreation")),
			"gameDuration":  formatNumber(number(game, "gameDuration")),
			"gameVersion":   str(game, "gameVersion"),
			"participantId": strconv.Itoa(p.id),
			"teamId":        strconv.Itoa(p.teamID),
			"side":          side(p.teamID),
			"team":          teamName(in.TeamNames, p.teamID),
			"position":      position(in.CustomPositions, i, p.position),
			"player":        playerName(in, i, p.name),
			"championId":    formatNumber(p.champion),
			"champion":      c.championName(p.champion),
			"win":           formatBool(p.win),
			"kills":         formatNumber(p.kills),
			"deaths":        formatNumber(p.deaths),
			"assists":       formatNumber(p.assists),
			"cs":            formatNumber(p.cs),
			"goldEarned":    formatNumber(p.gold),
			"visionScore":   formatNumber(p.vision),
			"goldAt10":      frameStat(frames, 10, p.id, "totalGold"),
			"goldAt15":      frameStat(frames, 15, p.id, "totalGold"),
			"csAt10":        frameStat(frames, 10, p.id, "minionsKilled", "jungleMinionsKilled"),
			"csAt15":        frameStat(frames, 15, p.id, "minionsKilled", "jungleMinionsKilled"),
		}
		if in.HasWeek {
			row["week"] = in.Week
		}
		t.AppendMap(row, nil)
	}
	return t, nil
}

func (c ParticipantConverter) championName(id float64) string {
	if c.Champions == nil {
		return ""
	}
	return c.Champions.Name(int(id))
}

// parseMatch returns the game-level object and participants sorted by id
func parseMatch(match storage.Document) (map[string]any, []participant, error) {
	if match == nil {
		return nil, nil, fmt.Errorf("%w: nil match", ErrUnsupportedPayload)
	}

	var parts []participant
	game := match
	if info, ok := match["info"].(map[string]any); ok {
		game = info
		for _, raw := range list(info, "participants") {
			p, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			parts = append(parts, participant{
				id:       int(number(p, "participantId")),
				teamID:   int(number(p, "teamId")),
				champion: number(p, "championId"),
				win:      boolean(p, "win"),
				kills:    number(p, "kills"),
				deaths:   number(p, "deaths"),
				assists:  number(p, "assists"),
				cs:       number(p, "totalMinionsKilled") + number(p, "neutralMinionsKilled"),
				gold:     number(p, "goldEarned"),
				vision:   number(p, "visionScore"),
				position: v5Positions[str(p, "teamPosition")],
				name:     firstNonEmpty(str(p, "riotIdGameName"), str(p, "summonerName")),
			})
		}
	} else {
		names := make(map[int]string)
		for _, raw := range list(match, "participantIdentities") {
			pi, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			player, _ := pi["player"].(map[string]any)
			names[int(number(pi, "participantId"))] = str(player, "summonerName")
		}
		for _, raw := range list(match, "participants") {
			p, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			stats, _ := p["stats"].(map[string]any)
			id := int(number(p, "participantId"))
			parts = append(parts, participant{
				id:       id,
				teamID:   int(number(p, "teamId")),
				champion: number(p, "championId"),
				win:      boolean(stats, "win"),
				kills:    number(stats, "kills"),
				deaths:   number(stats, "deaths"),
				assists:  number(stats, "assists"),
				cs:       number(stats, "totalMinionsKilled") + number(stats, "neutralMinionsKilled"),
				gold:     number(stats, "goldEarned"),
				vision:   number(stats, "visionScore"),
				name:     names[id],
			})
		}
	}
	if len(parts) == 0 {
		return nil, nil, fmt.Errorf("%w: no participants", ErrUnsupportedPayload)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].id < parts[j].id })
	return game, parts, nil
}

func timelineFrames(timeline storage.Document) []any {
	if info, ok := timeline["info"].(map[string]any); ok {
		return list(info, "frames")
	}
	return list(timeline, "frames")
}

// frameStat sums fields of a participant frame at the first frame reaching minute
func frameStat(frames []any, minute, participantID int, fields ...string) string {
	cutoff := float64(minute * 60000)
	for _, raw := range frames {
		frame, ok := raw.(map[string]any)
		if !ok || number(frame, "timestamp") < cutoff {
			continue
		}
		pfs, _ := frame["participantFrames"].(map[string]any)
		pf, ok := pfs[strconv.Itoa(participantID)].(map[string]any)
		if !ok {
			return ""
		}
		var sum float64
		for _, f := range fields {
			sum += number(pf, f)
		}
		return formatNumber(sum)
	}
	return ""
}

func side(teamID int) string {
	switch teamID {
	case 100:
		return "Blue"
	case 200:
		return "Red"
	}
	return ""
}

func teamName(names []string, teamID int) string {
	if len(names) != 2 {
		return ""
	}
	switch teamID {
	case 100:
		return names[0]
	case 200:
		return names[1]
	}
	return ""
}

// position prefers per-participant overrides, then the five standard
// labels repeated per team, then what the payload says
func position(custom []string, i int, fromPayload string) string {
	switch {
	case len(custom) == 10:
		return custom[i]
	case len(custom) == 5:
		return custom[i%5]
	}
	return fromPayload
}

func playerName(in Input, i int, fromPayload string) string {
	if (in.Custom || fromPayload == "") && i < len(in.CustomNames) && in.CustomNames[i] != "" {
		return in.CustomNames[i]
	}
	return fromPayload
}

func list(doc map[string]any, key string) []any {
	v, _ := doc[key].([]any)
	return v
}

func number(doc map[string]any, key string) float64 {
	switch n := doc[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func str(doc map[string]any, key string) string {
	switch v := doc[key].(type) {
	case string:
		return v
	case float64:
		return formatNumber(v)
	}
	return ""
}

func boolean(doc map[string]any, key string) bool {
	switch v := doc[key].(type) {
	case bool:
		return v
	case string:
		return v == "Win" || v == "true"
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
