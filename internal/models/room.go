package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Amenities is stored as a JSON array in a text column so the model works
// unchanged across postgres versions without a native array mapping.
type Amenities []string

func (a Amenities) Value() (driver.Value, error) {
	if a == nil {
		a = Amenities{}
	}
	return json.Marshal(a)
}

func (a *Amenities) Scan(value any) error {
	if value == nil {
		*a = Amenities{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported amenities column type %T", value)
	}
	return json.Unmarshal(data, a)
}

type Room struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Building  string    `gorm:"not null" json:"building"`
	Floor     int       `gorm:"not null" json:"floor"`
	Capacity  int       `gorm:"not null" json:"capacity"`
	Amenities Amenities `gorm:"type:text" json:"amenities"`
	ImageURL  string    `json:"image_url,omitempty"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
}
