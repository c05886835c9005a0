package riot

import (
	"fmt"
	"strconv"

	"slds/internal/storage"
)

// ChampionRegistry maps numeric champion ids to display names
type ChampionRegistry struct {
	champions map[int]string
}

// LoadChampionRegistry reads the champions file written by SaveStaticData
func LoadChampionRegistry(dir string) (*ChampionRegistry, error) {
	doc, err := storage.ReadJSON(dir, "champions")
	if err != nil {
		return nil, fmt.Errorf("failed to load champions: %w", err)
	}
	data, ok := doc["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to load champions: no data object")
	}

	r := &ChampionRegistry{champions: make(map[int]string, len(data))}
	for _, v := range data {
		champ, ok := v.(map[string]any)
		if !ok {
			continue
		}
		key, _ := champ["key"].(string)
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		name, _ := champ["name"].(string)
		r.champions[id] = name
	}
	return r, nil
}

// Name returns the champion name, empty when the id is unknown
func (r *ChampionRegistry) Name(id int) string {
	return r.champions[id]
}

// Len returns the number of known champions
func (r *ChampionRegistry) Len() int {
	return len(r.champions)
}
