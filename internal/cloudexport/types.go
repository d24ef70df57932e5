// Package cloudexport implements the simulated export hub: fake cloud
// integrations, templated exports with artificial latency and random
// failure, shareable links, and scheduled exports. Everything persists
// to local KV namespaces; no real external system is ever contacted.
package cloudexport

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"tally/internal/core"
)

type (
	IntegrationType string
	TemplateType    string
	ExportStatus    string
	Frequency       string
)

const (
	IntegrationGoogleSheets IntegrationType = "google-sheets"
	IntegrationDropbox      IntegrationType = "dropbox"
	IntegrationOneDrive     IntegrationType = "onedrive"
	IntegrationEmail        IntegrationType = "email"
	IntegrationNotion       IntegrationType = "notion"
	IntegrationAirtable     IntegrationType = "airtable"
)

const (
	StatusPending    ExportStatus = "pending"
	StatusProcessing ExportStatus = "processing"
	StatusCompleted  ExportStatus = "completed"
	StatusFailed     ExportStatus = "failed"
)

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// IntegrationTypes returns the closed destination set in display order.
func IntegrationTypes() []IntegrationType {
	return []IntegrationType{
		IntegrationGoogleSheets,
		IntegrationDropbox,
		IntegrationOneDrive,
		IntegrationEmail,
		IntegrationNotion,
		IntegrationAirtable,
	}
}

// ParseIntegration validates a raw destination string.
func ParseIntegration(s string) (IntegrationType, error) {
	for _, it := range IntegrationTypes() {
		if IntegrationType(s) == it {
			return it, nil
		}
	}
	return "", fmt.Errorf("unknown integration %q", s)
}

// ParseFrequency validates a raw schedule frequency.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return Frequency(s), nil
	}
	return "", fmt.Errorf("unknown frequency %q", s)
}

// NextRunAfter computes the next execution time from a reference point.
func (f Frequency) NextRunAfter(from time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return from.Add(24 * time.Hour)
	case FrequencyWeekly:
		return from.Add(7 * 24 * time.Hour)
	default: // monthly: first day of the following month
		return time.Date(from.Year(), from.Month()+1, 1, 0, 0, 0, 0, from.Location())
	}
}

// CloudIntegration is a destination in the hub catalog plus its
// per-session connection state.
type CloudIntegration struct {
	ID          IntegrationType `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Connected   bool            `json:"connected"`
	LastSync    string          `json:"last_sync,omitempty"`
}

// ExportTemplate describes one of the fixed export shapes. The catalog
// ships embedded in the binary (templates.yaml).
type ExportTemplate struct {
	ID          TemplateType `yaml:"id" json:"id"`
	Name        string       `yaml:"name" json:"name"`
	Description string       `yaml:"description" json:"description"`
	Fields      []string     `yaml:"fields" json:"fields"`
	DateRange   string       `yaml:"date_range" json:"date_range"` // all|last-week|last-month|last-quarter|last-year
}

// ExportHistoryItem is one entry of the capped export audit trail.
type ExportHistoryItem struct {
	ID          string       `json:"id"`
	Timestamp   time.Time    `json:"timestamp"`
	Template    TemplateType `json:"template"`
	Destination string       `json:"destination"` // integration id, "download", or "share-link"
	Status      ExportStatus `json:"status"`
	RecordCount int          `json:"record_count"`
	FileSize    string       `json:"file_size,omitempty"`
	ShareLink   string       `json:"share_link,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// ScheduledExport is a recurring export registration.
type ScheduledExport struct {
	ID          string          `json:"id"`
	Template    TemplateType    `json:"template"`
	Destination IntegrationType `json:"destination"`
	Frequency   Frequency       `json:"frequency"`
	NextRun     time.Time       `json:"next_run"`
	Enabled     bool            `json:"enabled"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ShareableExport is a generated share link with access limits.
type ShareableExport struct {
	ID          string    `json:"id"`
	Link        string    `json:"link"`
	QRCode      string    `json:"qr_code"`
	ExpiresAt   time.Time `json:"expires_at"`
	AccessCount int       `json:"access_count"`
	MaxAccess   int       `json:"max_access"`
	Password    string    `json:"password,omitempty"`
}

//go:embed templates.yaml
var templatesYAML []byte

var templateCatalog = mustLoadTemplates()

func mustLoadTemplates() []ExportTemplate {
	var doc struct {
		Templates []ExportTemplate `yaml:"templates"`
	}
	if err := yaml.Unmarshal(templatesYAML, &doc); err != nil {
		panic(fmt.Sprintf("parse embedded export templates: %v", err))
	}
	return doc.Templates
}

// Templates returns the fixed export template catalog.
func Templates() []ExportTemplate {
	return append([]ExportTemplate(nil), templateCatalog...)
}

// TemplateByID looks a template up in the catalog.
func TemplateByID(id TemplateType) (ExportTemplate, error) {
	for _, t := range templateCatalog {
		if t.ID == id {
			return t, nil
		}
	}
	return ExportTemplate{}, fmt.Errorf("unknown export template %q", id)
}

// ApplyDateRange filters expenses down to a template's date window.
// Order is preserved; "all" (or an unset range) keeps everything.
func (t ExportTemplate) ApplyDateRange(expenses []core.Expense, now time.Time) []core.Expense {
	var start time.Time
	switch t.DateRange {
	case "last-week":
		start = now.Add(-7 * 24 * time.Hour)
	case "last-month":
		start = now.AddDate(0, -1, 0)
	case "last-quarter":
		start = now.AddDate(0, -3, 0)
	case "last-year":
		start = now.AddDate(-1, 0, 0)
	default:
		return expenses
	}
	cutoff := core.DateOf(start)
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if !e.Date.Before(cutoff.Time) {
			out = append(out, e)
		}
	}
	return out
}
