package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// OperationType enumerates manufacturing operation kinds.
type OperationType string

const (
	OpMachining  OperationType = "machining"
	OpAssembly   OperationType = "assembly"
	OpInspection OperationType = "inspection"
	OpWelding    OperationType = "welding"
	OpPainting   OperationType = "painting"
	OpPackaging  OperationType = "packaging"
	OpTesting    OperationType = "testing"
)

// ValidOperationType reports whether t is a known operation kind.
func ValidOperationType(t OperationType) bool {
	switch t {
	case OpMachining, OpAssembly, OpInspection, OpWelding, OpPainting, OpPackaging, OpTesting:
		return true
	}
	return false
}

// Operation is a single manufacturing step with timing and resource
// requirements. Equipment, skills and quality requirements are stored as
// JSON text columns.
type Operation struct {
	ID            uint          `gorm:"primarykey" json:"id"`
	Name          string        `gorm:"not null;index" json:"name"`
	Description   string        `json:"description,omitempty"`
	OperationCode string        `gorm:"uniqueIndex;not null" json:"operation_code"`
	OperationType OperationType `gorm:"not null" json:"operation_type"`

	SetupTime     float64 `gorm:"not null;default:0" json:"setup_time"`     // minutes
	OperationTime float64 `gorm:"not null;default:0" json:"operation_time"` // minutes

	RequiredEquipment   string `gorm:"type:text" json:"-"` // JSON array
	RequiredSkills      string `gorm:"type:text" json:"-"` // JSON array
	QualityRequirements string `gorm:"type:text" json:"-"` // JSON object

	CreatedByID uint           `gorm:"not null" json:"-"`
	CreatedBy   *User          `gorm:"foreignKey:CreatedByID" json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Routes []TechnologicalRoute `gorm:"many2many:route_operations" json:"-"`
}

// TotalTime is derived from setup and operation time, never stored.
func (o *Operation) TotalTime() float64 {
	return o.SetupTime + o.OperationTime
}

// Equipment decodes the required equipment list.
func (o *Operation) Equipment() []string {
	return decodeStringList(o.RequiredEquipment)
}

// Skills decodes the required skills list.
func (o *Operation) Skills() []string {
	return decodeStringList(o.RequiredSkills)
}

// Quality decodes the quality requirements map.
func (o *Operation) Quality() map[string]interface{} {
	out := map[string]interface{}{}
	if o.QualityRequirements != "" {
		_ = json.Unmarshal([]byte(o.QualityRequirements), &out)
	}
	return out
}

// SetEquipment encodes the required equipment list.
func (o *Operation) SetEquipment(items []string) {
	o.RequiredEquipment = encodeJSON(items)
}

// SetSkills encodes the required skills list.
func (o *Operation) SetSkills(items []string) {
	o.RequiredSkills = encodeJSON(items)
}

// SetQuality encodes the quality requirements map.
func (o *Operation) SetQuality(req map[string]interface{}) {
	o.QualityRequirements = encodeJSON(req)
}

// OperationInfo is the API payload for an operation, with total_time derived.
type OperationInfo struct {
	ID                  uint                   `json:"id"`
	Name                string                 `json:"name"`
	Description         string                 `json:"description,omitempty"`
	OperationCode       string                 `json:"operation_code"`
	OperationType       OperationType          `json:"operation_type"`
	SetupTime           float64                `json:"setup_time"`
	OperationTime       float64                `json:"operation_time"`
	TotalTime           float64                `json:"total_time"`
	RequiredEquipment   []string               `json:"required_equipment"`
	RequiredSkills      []string               `json:"required_skills"`
	QualityRequirements map[string]interface{} `json:"quality_requirements"`
	CreatedBy           string                 `json:"created_by,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// Info builds the API payload for the operation.
func (o *Operation) Info() OperationInfo {
	info := OperationInfo{
		ID:                  o.ID,
		Name:                o.Name,
		Description:         o.Description,
		OperationCode:       o.OperationCode,
		OperationType:       o.OperationType,
		SetupTime:           o.SetupTime,
		OperationTime:       o.OperationTime,
		TotalTime:           o.TotalTime(),
		RequiredEquipment:   o.Equipment(),
		RequiredSkills:      o.Skills(),
		QualityRequirements: o.Quality(),
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
	if o.CreatedBy != nil {
		info.CreatedBy = o.CreatedBy.Username
	}
	return info
}

func decodeStringList(raw string) []string {
	out := []string{}
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &out)
	}
	return out
}

func encodeJSON(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}
