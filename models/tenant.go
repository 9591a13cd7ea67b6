package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Tenant struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key"`
	Name    string    `gorm:"not null"`
	Address string

	// Settings carries the document-number prefix, default tax rate,
	// retention policy and the signing-secret map (version -> secret).
	Settings JSONB `gorm:"type:jsonb;default:'{}'" json:"-"`

	Users        []User        `gorm:"foreignKey:TenantID"`
	Customers    []Customer    `gorm:"foreignKey:TenantID"`
	CatalogItems []CatalogItem `gorm:"foreignKey:TenantID"`
	Quotes       []Quote       `gorm:"foreignKey:TenantID"`

	gorm.Model
}

func (t *Tenant) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}

const (
	DefaultNumberPrefix   = "Q"
	DefaultRetentionYears = 5
)

// NumberPrefix returns the configured document-number prefix, falling back
// to the single-letter default when the tenant never set one.
func (t *Tenant) NumberPrefix() string {
	if v, ok := t.Settings["number_prefix"].(string); ok && v != "" {
		return v
	}
	return DefaultNumberPrefix
}

func (t *Tenant) DefaultTaxRate() float64 {
	if v, ok := t.Settings["default_tax_rate"].(float64); ok {
		return v
	}
	return 0
}

func (t *Tenant) RetentionYears() int {
	if v, ok := t.Settings["retention_years"].(float64); ok && v > 0 {
		return int(v)
	}
	return DefaultRetentionYears
}

// SigningSecrets returns the version -> secret map. An empty map means the
// tenant has no signing configuration at all.
func (t *Tenant) SigningSecrets() map[string]string {
	out := map[string]string{}
	raw, ok := t.Settings["signing_secrets"].(map[string]interface{})
	if !ok {
		return out
	}
	for version, secret := range raw {
		if s, ok := secret.(string); ok {
			out[version] = s
		}
	}
	return out
}

func (t *Tenant) ActiveSecretVersion() string {
	if v, ok := t.Settings["active_secret_version"].(string); ok {
		return v
	}
	return ""
}

// Custom JSONB type for tenant settings
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, &j)
	case string:
		return json.Unmarshal([]byte(v), &j)
	default:
		return errors.New("type assertion to []byte failed")
	}
}
