package characters

const (
	defaultRole        = "supporting"
	defaultImportance  = 3
	defaultTraitValue  = 50
	minTraitValue      = 0
	maxTraitValue      = 100
	minImportanceLevel = 1
	maxImportanceLevel = 5
)

// Roles lists the story roles a character can occupy.
func Roles() []string {
	return []string{"protagonist", "main", "supporting", "sidekick", "antagonist", "mentor"}
}

// ArchetypePreset pairs a classic storytelling archetype with the
// personality traits it pre-populates. Traits not named keep the 50 default.
type ArchetypePreset struct {
	Value       string      `json:"value"`
	Label       string      `json:"label"`
	Description string      `json:"description"`
	Traits      Personality `json:"traits"`
}

// ArchetypePresets returns the fixed archetype list in display order.
func ArchetypePresets() []ArchetypePreset {
	return []ArchetypePreset{
		{Value: "hero", Label: "The Hero", Description: "Brave, determined, willing to sacrifice for others",
			Traits: withDefaults(Personality{Courage: 80, Determination: 85, Kindness: 70})},
		{Value: "mentor", Label: "The Mentor", Description: "Wise teacher who guides others on their journey",
			Traits: withDefaults(Personality{Intelligence: 90, Kindness: 80, Charisma: 70})},
		{Value: "trickster", Label: "The Trickster", Description: "Clever and mischievous, brings humor and chaos",
			Traits: withDefaults(Personality{Intelligence: 75, Humor: 95, Charisma: 80})},
		{Value: "sage", Label: "The Sage", Description: "Seeker of truth and knowledge, often a scholar",
			Traits: withDefaults(Personality{Intelligence: 95, Kindness: 60, Determination: 70})},
		{Value: "innocent", Label: "The Innocent", Description: "Pure of heart, optimistic, sees good in everyone",
			Traits: withDefaults(Personality{Kindness: 90, Courage: 40, Humor: 60})},
		{Value: "explorer", Label: "The Explorer", Description: "Adventurous spirit, always seeking new experiences",
			Traits: withDefaults(Personality{Courage: 85, Determination: 80, Intelligence: 70})},
		{Value: "rebel", Label: "The Rebel", Description: "Questions authority, fights against the system",
			Traits: withDefaults(Personality{Courage: 90, Determination: 85, Charisma: 75})},
		{Value: "lover", Label: "The Lover", Description: "Passionate, romantic, driven by relationships",
			Traits: withDefaults(Personality{Charisma: 85, Kindness: 80, Humor: 70})},
		{Value: "creator", Label: "The Creator", Description: "Artistic soul, builds and imagines new things",
			Traits: withDefaults(Personality{Intelligence: 80, Determination: 75, Humor: 65})},
		{Value: "caregiver", Label: "The Caregiver", Description: "Nurturing protector, puts others before themselves",
			Traits: withDefaults(Personality{Kindness: 95, Courage: 70, Determination: 80})},
		{Value: "magician", Label: "The Magician", Description: "Transforms reality, has special powers or knowledge",
			Traits: withDefaults(Personality{Intelligence: 85, Charisma: 80, Determination: 75})},
		{Value: "ruler", Label: "The Ruler", Description: "Natural leader, takes charge and makes decisions",
			Traits: withDefaults(Personality{Charisma: 90, Determination: 85, Intelligence: 80})},
	}
}

// ArchetypePresetByValue resolves an archetype preset from its stored value.
func ArchetypePresetByValue(value string) (ArchetypePreset, bool) {
	for _, preset := range ArchetypePresets() {
		if preset.Value == value {
			return preset, true
		}
	}
	return ArchetypePreset{}, false
}

// DefaultAppearance returns the bucket values used when a character is
// created without an explicit appearance.
func DefaultAppearance() Appearance {
	return Appearance{
		Age:                 25,
		Height:              "average",
		Build:               "average",
		HairColor:           "brown",
		EyeColor:            "brown",
		DistinctiveFeatures: []string{},
	}
}

// DefaultPersonality returns all six traits at the neutral midpoint.
func DefaultPersonality() Personality {
	return Personality{
		Courage:       defaultTraitValue,
		Intelligence:  defaultTraitValue,
		Charisma:      defaultTraitValue,
		Kindness:      defaultTraitValue,
		Humor:         defaultTraitValue,
		Determination: defaultTraitValue,
	}
}

// withDefaults replaces zero traits with the neutral midpoint so archetype
// presets only need to name the traits they emphasize.
func withDefaults(traits Personality) Personality {
	fill := func(value int) int {
		if value == 0 {
			return defaultTraitValue
		}
		return value
	}
	return Personality{
		Courage:       fill(traits.Courage),
		Intelligence:  fill(traits.Intelligence),
		Charisma:      fill(traits.Charisma),
		Kindness:      fill(traits.Kindness),
		Humor:         fill(traits.Humor),
		Determination: fill(traits.Determination),
	}
}

func validRole(role string) bool {
	for _, known := range Roles() {
		if known == role {
			return true
		}
	}
	return false
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

// Clamped returns a copy with every trait forced into the 0-100 range.
func (p Personality) Clamped() Personality {
	return Personality{
		Courage:       clamp(p.Courage, minTraitValue, maxTraitValue),
		Intelligence:  clamp(p.Intelligence, minTraitValue, maxTraitValue),
		Charisma:      clamp(p.Charisma, minTraitValue, maxTraitValue),
		Kindness:      clamp(p.Kindness, minTraitValue, maxTraitValue),
		Humor:         clamp(p.Humor, minTraitValue, maxTraitValue),
		Determination: clamp(p.Determination, minTraitValue, maxTraitValue),
	}
}
