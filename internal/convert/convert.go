package convert

import (
	"context"
	"errors"
	"strings"

	"slds/internal/config"
	"slds/internal/dataset"
	"slds/internal/storage"
)

var ErrUnsupportedPayload = errors.New("unsupported match payload")

// Input is everything needed to turn one raw record into participant rows
type Input struct {
	Match    storage.Document
	Timeline storage.Document

	// Overrides taken from the reference row, participant order (1..10)
	CustomNames     []string
	CustomPositions []string
	TeamNames       []string // [blue, red]
	Week            string
	HasWeek         bool
	// Custom games carry no player identities; names come from CustomNames
	Custom bool
}

// Converter turns one raw record into dataset rows. It must be
// column-stable for a given league configuration.
type Converter interface {
	Convert(ctx context.Context, in Input) (*dataset.Table, error)
}

// ConverterFunc adapts a function to Converter
type ConverterFunc func(ctx context.Context, in Input) (*dataset.Table, error)

func (f ConverterFunc) Convert(ctx context.Context, in Input) (*dataset.Table, error) {
	return f(ctx, in)
}

// InputFor builds a converter input from the league capabilities and the
// reference row of a match. No branch depends on the league name.
func InputFor(league *config.League, rec *storage.Record, row map[string]string) Input {
	in := Input{
		Match:    rec.Match,
		Timeline: rec.Timeline,
		Custom:   league.Custom,
	}
	if len(league.ParticipantNameColumns) > 0 {
		in.CustomNames = pick(row, league.ParticipantNameColumns)
	}
	if len(league.PositionColumns) > 0 {
		in.CustomPositions = pick(row, league.PositionColumns)
	} else {
		in.CustomPositions = league.Positions()
	}
	if len(league.TeamColumns) == 2 {
		in.TeamNames = pick(row, league.TeamColumns)
	}
	if league.WeekColumn != "" {
		in.HasWeek = true
		in.Week = row[league.WeekColumn]
	}
	return in
}

func pick(row map[string]string, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = strings.TrimSpace(row[c])
	}
	return out
}
