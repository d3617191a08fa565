package characters

import (
	"errors"
	"time"
)

var (
	// ErrCharacterNotFound indicates the requested character does not exist.
	ErrCharacterNotFound = errors.New("characters: character not found")
	// ErrInvalidName indicates an empty character name.
	ErrInvalidName = errors.New("characters: name is required")
	// ErrInvalidRole indicates a role outside the known set.
	ErrInvalidRole = errors.New("characters: unknown role")
	// ErrInvalidArchetype indicates an archetype outside the preset list.
	ErrInvalidArchetype = errors.New("characters: unknown archetype")
)

// Appearance is the structured physical description of a character. Height
// and build are bucket values from the preset options, not free text.
type Appearance struct {
	Age                 int      `json:"age"`
	Height              string   `json:"height"`
	Build               string   `json:"build"`
	HairColor           string   `json:"hairColor"`
	EyeColor            string   `json:"eyeColor"`
	DistinctiveFeatures []string `json:"distinctiveFeatures"`
}

// Personality holds the six slider traits, each 0-100.
type Personality struct {
	Courage       int `json:"courage"`
	Intelligence  int `json:"intelligence"`
	Charisma      int `json:"charisma"`
	Kindness      int `json:"kindness"`
	Humor         int `json:"humor"`
	Determination int `json:"determination"`
}

// Relationships maps another character id to a free-text relationship label.
type Relationships map[string]string

// Character models one roster entry. Appearance, personality and
// relationships are serialized JSON columns but always fully populated
// before insert, so reads never see an absent record.
type Character struct {
	ID              string        `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	ProjectID       string        `gorm:"column:project_id;size:190;not null;index" json:"projectId"`
	Name            string        `gorm:"column:name;size:320;not null" json:"name"`
	Description     string        `gorm:"column:description;type:text" json:"description"`
	Notes           string        `gorm:"column:notes;type:text" json:"notes"`
	Role            string        `gorm:"column:role;size:64;not null" json:"role"`
	Archetype       string        `gorm:"column:archetype;size:64" json:"archetype"`
	Appearance      Appearance    `gorm:"column:appearance;type:text;serializer:json" json:"appearance"`
	Personality     Personality   `gorm:"column:personality;type:text;serializer:json" json:"personality"`
	ImportanceLevel int           `gorm:"column:importance_level;not null" json:"importanceLevel"`
	Relationships   Relationships `gorm:"column:relationships;type:text;serializer:json" json:"relationships"`
	Motivation      string        `gorm:"column:motivation;type:text" json:"motivation"`
	Goals           string        `gorm:"column:goals;type:text" json:"goals"`
	Fears           string        `gorm:"column:fears;type:text" json:"fears"`
	Secrets         string        `gorm:"column:secrets;type:text" json:"secrets"`
	CreatedAt       time.Time     `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt       time.Time     `gorm:"column:updated_at;not null" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (Character) TableName() string {
	return "characters"
}
