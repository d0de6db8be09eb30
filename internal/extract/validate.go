package extract

import (
	"fmt"
	"strings"

	"github.com/Assassin199108/pokemon-agent-backend/models"
	"github.com/Assassin199108/pokemon-agent-backend/utils"
)

var recordKeys = []string{"types", "abilities", "base_stats", "evolution_chain", "basic_info", "game_info"}

// ValidateStructure checks the raw extracted record before scoring. The
// record must be an object carrying at least one known key, and base_stats,
// when present, must carry all six stats.
func ValidateStructure(data map[string]interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("extracted record is empty")
	}
	known := false
	for _, k := range recordKeys {
		if _, ok := data[k]; ok {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("extracted record carries no pokemon fields")
	}
	if raw, ok := data["base_stats"]; ok {
		stats, ok := raw.(map[string]interface{})
		if !ok {
			return fmt.Errorf("base_stats is not an object")
		}
		for _, name := range models.BaseStatNames {
			if !present(stats[name]) {
				return fmt.Errorf("base_stats missing %s", name)
			}
		}
	}
	return nil
}

// Quality scores a raw record 0..1 over a 100 point budget: basic info 20,
// base stats 30, abilities 15, evolution chain 15, game info 20.
func Quality(data map[string]interface{}) (float64, []string) {
	score := 0.0
	var issues []string

	basic := asMap(data["basic_info"])
	if present(field(data, basic, "name")) {
		score += 5
	} else {
		issues = append(issues, "missing name")
	}
	if present(field(data, basic, "dex_number")) {
		score += 5
	} else {
		issues = append(issues, "missing dex number")
	}
	if len(stringList(firstPresent(data["types"], basic["types"]))) > 0 {
		score += 5
	} else {
		issues = append(issues, "missing types")
	}
	if present(basic["height"]) && present(basic["weight"]) {
		score += 5
	} else {
		issues = append(issues, "missing height or weight")
	}

	stats := asMap(data["base_stats"])
	have := 0
	for _, name := range models.BaseStatNames {
		if present(stats[name]) {
			have++
		}
	}
	score += float64(have) * 5
	if have < len(models.BaseStatNames) {
		issues = append(issues, fmt.Sprintf("only %d of %d base stats", have, len(models.BaseStatNames)))
	}

	abilities := stringList(data["abilities"])
	abilityScore := float64(len(abilities)) * 5
	if abilityScore > 15 {
		abilityScore = 15
	}
	score += abilityScore
	if len(abilities) == 0 {
		issues = append(issues, "missing abilities")
	}

	if chain := str(data["evolution_chain"]); len(chain) > 10 {
		score += 15
	} else {
		issues = append(issues, "missing or trivial evolution chain")
	}

	game := asMap(data["game_info"])
	if present(game["generation"]) {
		score += 10
	} else {
		issues = append(issues, "missing generation")
	}
	if present(game["version_debut"]) {
		score += 10
	} else {
		issues = append(issues, "missing version debut")
	}

	return score / 100, issues
}

// Standardize coerces a raw record into the string-valued domain type,
// with "N/A" for anything absent.
func Standardize(data map[string]interface{}) *models.PokemonData {
	basic := asMap(data["basic_info"])
	game := asMap(data["game_info"])
	stats := asMap(data["base_stats"])

	out := &models.PokemonData{
		BasicInfo: models.BasicInfo{
			Name:      orNA(str(field(data, basic, "name"))),
			DexNumber: orNA(str(field(data, basic, "dex_number"))),
			Height:    orNA(str(basic["height"])),
			Weight:    orNA(str(basic["weight"])),
			Category:  orNA(str(basic["category"])),
		},
		Types:          stringList(firstPresent(data["types"], basic["types"])),
		Abilities:      stringList(data["abilities"]),
		BaseStats:      make(map[string]string, len(models.BaseStatNames)),
		EvolutionChain: orNA(str(data["evolution_chain"])),
		GameInfo: models.GameInfo{
			Generation:   orNA(str(game["generation"])),
			VersionDebut: orNA(str(game["version_debut"])),
		},
	}
	for _, name := range models.BaseStatNames {
		out.BaseStats[name] = orNA(str(stats[name]))
	}
	return out
}

// KeyInfo derives the compact summary from a standardized record
func KeyInfo(data *models.PokemonData) models.KeyInfo {
	total := 0
	for _, v := range data.BaseStats {
		total += atoiLoose(v)
	}
	return models.KeyInfo{
		Name:          data.BasicInfo.Name,
		DexNumber:     data.BasicInfo.DexNumber,
		Types:         data.Types,
		BaseStatTotal: total,
		AbilityCount:  len(data.Abilities),
	}
}

func asMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

// field reads a key from the nested object, falling back to the top level
func field(data, nested map[string]interface{}, key string) interface{} {
	if nested != nil {
		if v, ok := nested[key]; ok && present(v) {
			return v
		}
	}
	return data[key]
}

func firstPresent(vs ...interface{}) interface{} {
	for _, v := range vs {
		if present(v) {
			return v
		}
	}
	return nil
}

func present(v interface{}) bool {
	if v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s != "" && !strings.EqualFold(s, "n/a") && s != "无" && !strings.EqualFold(s, "unknown")
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	default:
		return true
	}
}

func str(v interface{}) string {
	if v == nil {
		return ""
	}
	s := strings.TrimSpace(utils.Str(v))
	if strings.EqualFold(s, "n/a") || s == "无" {
		return ""
	}
	return s
}

// stringList coerces a value that may be a list, a single string, or a
// separator-joined string.
func stringList(v interface{}) []string {
	var out []string
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			if s := str(item); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range t {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.FieldsFunc(t, func(r rune) bool {
			return r == ',' || r == '、' || r == '/' || r == ';' || r == '，'
		}) {
			if s := str(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func atoiLoose(s string) int {
	n := 0
	seen := false
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n = n*10 + int(r-'0')
			seen = true
		} else if seen {
			break
		}
	}
	return n
}
