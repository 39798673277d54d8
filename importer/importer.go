// ABOUTME: Adapter importing leads captured by external platforms
// ABOUTME: Reads YAML or JSON records and maps their fields onto lead input
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/harperreed/funnel/crm"
	"github.com/harperreed/funnel/models"
)

// Record is a lead as exported by an external capture platform.
type Record struct {
	FullName       string `json:"full_name" yaml:"full_name"`
	ContactEmail   string `json:"contact_email" yaml:"contact_email"`
	OriginPlatform string `json:"origin_platform" yaml:"origin_platform"`
}

// socialPlatforms are origin platforms that count as social media.
var socialPlatforms = map[string]bool{
	"facebook":  true,
	"instagram": true,
	"linkedin":  true,
	"twitter":   true,
	"x":         true,
	"tiktok":    true,
	"youtube":   true,
}

// LeadInput maps the record onto lead fields. A missing platform becomes
// Other; unknown platforms are passed through and rejected by validation.
func (r Record) LeadInput() models.LeadInput {
	source := strings.TrimSpace(r.OriginPlatform)
	switch {
	case source == "":
		source = models.SourceOther
	case socialPlatforms[models.FoldKey(source)]:
		source = models.SourceSocial
	}
	return models.LeadInput{
		Name:   r.FullName,
		Email:  r.ContactEmail,
		Source: source,
	}
}

// envelope is the optional wrapped form {"leads": [...]}.
type envelope struct {
	Leads []Record `json:"leads" yaml:"leads"`
}

// Decode parses records in format "yaml" or "json". Both a bare list and a
// document with a top-level "leads" list are accepted.
func Decode(r io.Reader, format string) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []Record{}, nil
	}

	var unmarshal func([]byte, any) error
	switch strings.ToLower(format) {
	case "json":
		unmarshal = json.Unmarshal
	case "yaml", "yml":
		unmarshal = yaml.Unmarshal
	default:
		return nil, fmt.Errorf("unsupported import format %q", format)
	}

	var list []Record
	if err := unmarshal(data, &list); err == nil {
		return list, nil
	}
	var wrapped envelope
	if err := unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode %s records: %w", format, err)
	}
	if wrapped.Leads == nil {
		return []Record{}, nil
	}
	return wrapped.Leads, nil
}

// ReadFile decodes the records in path, choosing the format by extension.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return Decode(f, format)
}

// LeadImporter is the part of the service the adapter needs.
type LeadImporter interface {
	ImportLeads(ctx context.Context, records []models.LeadInput) (crm.ImportResult, error)
}

// ImportFile reads path and imports every record through svc.
func ImportFile(ctx context.Context, svc LeadImporter, path string) (crm.ImportResult, error) {
	records, err := ReadFile(path)
	if err != nil {
		return crm.ImportResult{}, err
	}
	inputs := make([]models.LeadInput, len(records))
	for i, r := range records {
		inputs[i] = r.LeadInput()
	}
	return svc.ImportLeads(ctx, inputs)
}
