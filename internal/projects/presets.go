package projects

// LevelPreset pairs a display name with a ready-made level configuration.
type LevelPreset struct {
	Name   string      `json:"name"`
	Config LevelConfig `json:"config"`
}

// LevelPresets returns the fixed set of named hierarchy configurations
// offered by the project settings dialog.
func LevelPresets() []LevelPreset {
	return []LevelPreset{
		{Name: "Classic Screenplay", Config: LevelConfig{Level1: "Act", Level2: "Scene", Level3: "Beat"}},
		{Name: "Novel Structure", Config: LevelConfig{Level1: "Part", Level2: "Chapter", Level3: "Section"}},
		{Name: "Three-Act Story", Config: LevelConfig{Level1: "Act", Level2: "Chapter", Level3: "Scene"}},
		{Name: "Children's Book", Config: LevelConfig{Level1: "Chapter", Level2: "Page", Level3: "Panel"}},
		{Name: "Default", Config: DefaultLevelConfig()},
	}
}

// LevelPresetByName resolves a preset by its display name.
func LevelPresetByName(name string) (LevelPreset, bool) {
	for _, preset := range LevelPresets() {
		if preset.Name == name {
			return preset, true
		}
	}
	return LevelPreset{}, false
}
