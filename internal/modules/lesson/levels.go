package lesson

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const lessonLevelsEnv = "LESSON_LEVELS_YAML"

//go:embed levels.yaml
var lessonLevelsFS embed.FS

// LevelProfile describes how the model should write for one CEFR tier.
type LevelProfile struct {
	Code             string `yaml:"code"`
	Label            string `yaml:"label"`
	MaxSentenceWords int    `yaml:"max_sentence_words"`
	Guidance         string `yaml:"guidance"`
}

type yamlLevelCatalog struct {
	Catalog string         `yaml:"catalog"`
	Version int            `yaml:"version"`
	Levels  []LevelProfile `yaml:"levels"`
}

// fallback profiles used when YAML is missing or invalid
var fallbackLevelProfiles = map[Level]LevelProfile{
	LevelA1: {Code: "A1", Label: "Beginner", MaxSentenceWords: 8, Guidance: "Use only the most common everyday words and very short present-tense sentences."},
	LevelA2: {Code: "A2", Label: "Elementary", MaxSentenceWords: 12, Guidance: "Use high-frequency vocabulary and short sentences with simple connectors."},
	LevelB1: {Code: "B1", Label: "Intermediate", MaxSentenceWords: 16, Guidance: "Use everyday vocabulary with some topic-specific terms in clear context."},
	LevelB2: {Code: "B2", Label: "Upper Intermediate", MaxSentenceWords: 20, Guidance: "Use a broad vocabulary; complex sentences are fine."},
	LevelC1: {Code: "C1", Label: "Advanced", MaxSentenceWords: 26, Guidance: "Write natural, fluent prose with nuanced vocabulary and varied structure."},
	LevelC2: {Code: "C2", Label: "Proficient", MaxSentenceWords: 32, Guidance: "Write at full native sophistication."},
}

var levelsOnce sync.Once
var levelsCache map[Level]LevelProfile
var levelsErr error

func levelProfiles() map[Level]LevelProfile {
	levelsOnce.Do(func() {
		levelsCache, levelsErr = loadLevelProfiles()
	})
	if levelsErr != nil {
		return fallbackLevelProfiles
	}
	return levelsCache
}

// Profile returns the writing profile for the level, falling back to B1 for a
// level outside the catalog.
func (l Level) Profile() LevelProfile {
	profiles := levelProfiles()
	if p, ok := profiles[l]; ok {
		return p
	}
	return profiles[LevelB1]
}

func (l Level) Label() string {
	return l.Profile().Label
}

func loadLevelProfiles() (map[Level]LevelProfile, error) {
	data, err := readLevelCatalog()
	if err != nil {
		return nil, err
	}

	var cat yamlLevelCatalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, err
	}
	if err := validateLevelCatalog(&cat); err != nil {
		return nil, err
	}

	out := make(map[Level]LevelProfile, len(cat.Levels))
	for _, p := range cat.Levels {
		code, ok := ParseLevel(p.Code)
		if !ok {
			continue
		}
		p.Code = string(code)
		out[code] = p
	}
	return out, nil
}

func readLevelCatalog() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(lessonLevelsEnv)); path != "" {
		return os.ReadFile(path)
	}
	return lessonLevelsFS.ReadFile("levels.yaml")
}

func validateLevelCatalog(cat *yamlLevelCatalog) error {
	if cat == nil {
		return errors.New("missing catalog")
	}
	if strings.TrimSpace(cat.Catalog) != "lesson_levels" {
		return fmt.Errorf("unexpected catalog: %s", cat.Catalog)
	}
	if len(cat.Levels) == 0 {
		return errors.New("no levels defined")
	}
	seen := map[string]bool{}
	for _, p := range cat.Levels {
		code := strings.ToUpper(strings.TrimSpace(p.Code))
		if code == "" {
			return errors.New("level code is required")
		}
		if seen[code] {
			return fmt.Errorf("duplicate level code: %s", code)
		}
		seen[code] = true
		if strings.TrimSpace(p.Guidance) == "" {
			return fmt.Errorf("level %s has no guidance", code)
		}
	}
	for _, code := range AllLevels() {
		if !seen[string(code)] {
			return fmt.Errorf("catalog missing level %s", code)
		}
	}
	return nil
}
