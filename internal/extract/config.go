package extract

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/healthreport/reportd/configs"
)

// Section is an ordered group of field declarations within an assessment type.
type Section struct {
	ID          string             `yaml:"id" json:"id"`
	Title       string             `yaml:"title" json:"title"`
	Description string             `yaml:"description,omitempty" json:"description,omitempty"`
	Fields      []FieldDeclaration `yaml:"fields" json:"fields"`
}

// AssessmentType is the report layout for one assessment code.
type AssessmentType struct {
	ID          string    `yaml:"id" json:"assessment_id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Sections    []Section `yaml:"sections" json:"sections"`
}

// FieldCount returns the number of declared fields across all sections.
func (a *AssessmentType) FieldCount() int {
	n := 0
	for _, s := range a.Sections {
		n += len(s.Fields)
	}
	return n
}

// configFile is the on-disk layout of an assessment configuration.
type configFile struct {
	Version     string            `yaml:"version"`
	Assessments []*AssessmentType `yaml:"assessments"`
}

// Catalog is a validated set of assessment types. It is never modified after
// it is built and may be shared by concurrent readers.
type Catalog struct {
	version string
	order   []string
	byID    map[string]*AssessmentType
}

// LoadConfigFile reads and validates a YAML configuration file.
func LoadConfigFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read assessment config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates YAML configuration data. All validation
// problems are reported together.
func ParseConfig(data []byte) (*Catalog, error) {
	var cf configFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse assessment config YAML: %w", err)
	}
	if cf.Version == "" {
		cf.Version = "1"
	}
	return newCatalog(cf.Version, cf.Assessments)
}

// NewCatalog validates types and builds a Catalog from them.
func NewCatalog(types ...*AssessmentType) (*Catalog, error) {
	return newCatalog("1", types)
}

func newCatalog(version string, types []*AssessmentType) (*Catalog, error) {
	c := &Catalog{
		version: version,
		byID:    make(map[string]*AssessmentType, len(types)),
	}

	var errs []error
	for i, at := range types {
		if at == nil {
			errs = append(errs, fmt.Errorf("assessment %d: empty entry", i))
			continue
		}
		if err := validateType(at); err != nil {
			errs = append(errs, err)
		}
		if at.ID == "" {
			continue
		}
		if _, dup := c.byID[at.ID]; dup {
			errs = append(errs, fmt.Errorf("assessment %q: declared more than once", at.ID))
			continue
		}
		c.byID[at.ID] = at
		c.order = append(c.order, at.ID)
	}
	if len(c.order) == 0 && len(errs) == 0 {
		errs = append(errs, errors.New("no assessment types configured"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid assessment config: %w", err)
	}
	return c, nil
}

func validateType(at *AssessmentType) error {
	var errs []error
	if at.ID == "" {
		errs = append(errs, errors.New("assessment: id is required"))
	}
	if at.Name == "" {
		errs = append(errs, fmt.Errorf("assessment %q: name is required", at.ID))
	}

	sectionIDs := make(map[string]bool, len(at.Sections))
	for si := range at.Sections {
		s := &at.Sections[si]
		where := fmt.Sprintf("assessment %q section %q", at.ID, s.ID)
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("assessment %q section %d: id is required", at.ID, si))
		} else if sectionIDs[s.ID] {
			errs = append(errs, fmt.Errorf("%s: duplicate section id", where))
		}
		sectionIDs[s.ID] = true

		fieldIDs := make(map[string]bool, len(s.Fields))
		for fi := range s.Fields {
			f := &s.Fields[fi]
			fwhere := fmt.Sprintf("%s field %q", where, f.ID)
			if f.ID == "" {
				errs = append(errs, fmt.Errorf("%s field %d: id is required", where, fi))
			} else if fieldIDs[f.ID] {
				errs = append(errs, fmt.Errorf("%s: duplicate field id", fwhere))
			}
			fieldIDs[f.ID] = true

			if f.Label == "" {
				errs = append(errs, fmt.Errorf("%s: label is required", fwhere))
			}
			if err := f.Compile(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", fwhere, err))
			}
			if f.Transform != "" && !KnownTransform(f.Transform) {
				errs = append(errs, fmt.Errorf("%s: unknown transform %q", fwhere, f.Transform))
			}
			if f.Classification != nil {
				if err := f.Classification.Validate(); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", fwhere, err))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// Get returns the assessment type for id.
func (c *Catalog) Get(id string) (*AssessmentType, bool) {
	at, ok := c.byID[id]
	return at, ok
}

// IDs returns the configured assessment ids in declaration order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

// Types returns the assessment types in declaration order.
func (c *Catalog) Types() []*AssessmentType {
	out := make([]*AssessmentType, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Names maps assessment ids to display names, for the assessmentName
// transform.
func (c *Catalog) Names() map[string]string {
	out := make(map[string]string, len(c.byID))
	for id, at := range c.byID {
		out[id] = at.Name
	}
	return out
}

// Version is the configuration version declared in the file.
func (c *Catalog) Version() string {
	return c.version
}

// DefaultCatalog parses the configuration compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseConfig(configs.Assessments)
}
