// Package catalog loads the read-only table of government schemes and their
// eligibility rules.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/forest-rights-tracker/constants"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/common"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/entity"
)

//go:embed catalog.schema.json
var schemaJSON []byte

//go:embed default_catalog.json
var defaultCatalogJSON []byte

// Catalog is an ordered, immutable set of schemes. Safe for concurrent use.
type Catalog struct {
	schemes []entity.Scheme
	byID    map[string]int
}

type fileRule struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Threshold *float64 `json:"threshold"`
	Allowed   []string `json:"allowed"`
	Weight    float64  `json:"weight"`
	Mandatory bool     `json:"mandatory"`
}

type fileScheme struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Description         string     `json:"description"`
	BenefitAmount       string     `json:"benefit_amount"`
	Timeline            string     `json:"timeline"`
	ImplementationSteps []string   `json:"implementation_steps"`
	Rules               []fileRule `json:"eligibility_rules"`
}

type fileCatalog struct {
	Version string       `json:"version"`
	Schemes []fileScheme `json:"schemes"`
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalogJSON, "json")
}

// Load reads a catalog file (.json, .yaml, .yml). An empty path loads the default.
func Load(path string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		c, err := Default()
		if err == nil {
			logger.Info("loaded default scheme catalog", "schemes", c.Len())
		}
		return c, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read scheme catalog", "path", path, "error", err)
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data, strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		logger.Error("invalid scheme catalog", "path", path, "error", err)
		return nil, err
	}
	logger.Info("loaded scheme catalog", "path", path, "schemes", c.Len())
	return c, nil
}

// Parse decodes and validates a catalog document. format is "json", "yaml" or "yml".
func Parse(data []byte, format string) (*Catalog, error) {
	doc, err := toJSON(data, format)
	if err != nil {
		return nil, invalid("decode catalog", err)
	}
	if err := validateDocument(doc); err != nil {
		return nil, invalid("catalog does not match schema", err)
	}
	var fc fileCatalog
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return nil, invalid("decode catalog", err)
	}
	schemes := make([]entity.Scheme, 0, len(fc.Schemes))
	for _, fs := range fc.Schemes {
		s, err := fs.toScheme()
		if err != nil {
			return nil, err
		}
		schemes = append(schemes, s)
	}
	return New(schemes)
}

// New validates schemes and builds a Catalog that owns copies of them.
func New(schemes []entity.Scheme) (*Catalog, error) {
	c := &Catalog{
		schemes: make([]entity.Scheme, 0, len(schemes)),
		byID:    make(map[string]int, len(schemes)),
	}
	for _, s := range schemes {
		if err := validateScheme(s); err != nil {
			return nil, err
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, invalid(fmt.Sprintf("duplicate scheme id %q", s.ID), nil)
		}
		c.byID[s.ID] = len(c.schemes)
		c.schemes = append(c.schemes, s.Clone())
	}
	return c, nil
}

// Schemes returns a copy of the schemes in catalog order.
func (c *Catalog) Schemes() []entity.Scheme {
	if c == nil {
		return nil
	}
	out := make([]entity.Scheme, len(c.schemes))
	for i, s := range c.schemes {
		out[i] = s.Clone()
	}
	return out
}

// Lookup returns the scheme with the given id.
func (c *Catalog) Lookup(id string) (entity.Scheme, bool) {
	if c == nil {
		return entity.Scheme{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return entity.Scheme{}, false
	}
	return c.schemes[i].Clone(), true
}

// Len returns the number of schemes.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.schemes)
}

func (fs fileScheme) toScheme() (entity.Scheme, error) {
	s := entity.Scheme{
		ID:                  fs.ID,
		Name:                fs.Name,
		Description:         fs.Description,
		BenefitAmount:       fs.BenefitAmount,
		Timeline:            fs.Timeline,
		ImplementationSteps: fs.ImplementationSteps,
	}
	for i, fr := range fs.Rules {
		r := entity.Rule{Name: fr.Name, Weight: fr.Weight, Mandatory: fr.Mandatory}
		if r.Name == "" {
			r.Name = fr.Kind
		}
		if r.Weight == 0 {
			r.Weight = 1
		}
		switch fr.Kind {
		case entity.KindMinArea, entity.KindMaxArea:
			if fr.Threshold == nil {
				return s, invalid(fmt.Sprintf("scheme %q rule %d: threshold required", fs.ID, i), nil)
			}
			if fr.Kind == entity.KindMinArea {
				r.Predicate = entity.MinArea{Hectares: *fr.Threshold}
			} else {
				r.Predicate = entity.MaxArea{Hectares: *fr.Threshold}
			}
		case entity.KindAllowedStatus:
			statuses := make([]constants.ClaimStatus, 0, len(fr.Allowed))
			for _, a := range fr.Allowed {
				statuses = append(statuses, constants.ClaimStatus(a))
			}
			r.Predicate = entity.AllowedStatus{Statuses: statuses}
		default:
			return s, invalid(fmt.Sprintf("scheme %q rule %d: unknown kind %q", fs.ID, i, fr.Kind), nil)
		}
		s.Rules = append(s.Rules, r)
	}
	return s, nil
}

// validateScheme enforces what the JSON schema cannot express.
func validateScheme(s entity.Scheme) error {
	if strings.TrimSpace(s.ID) == "" {
		return invalid("scheme id is required", nil)
	}
	if strings.TrimSpace(s.Name) == "" {
		return invalid(fmt.Sprintf("scheme %q: name is required", s.ID), nil)
	}
	if len(s.Rules) == 0 {
		return invalid(fmt.Sprintf("scheme %q: empty rule set", s.ID), nil)
	}
	names := make(map[string]struct{}, len(s.Rules))
	minArea, maxArea := -1.0, -1.0
	for _, r := range s.Rules {
		if r.Predicate == nil {
			return invalid(fmt.Sprintf("scheme %q rule %q: missing predicate", s.ID, r.Name), nil)
		}
		if r.Name == "" {
			return invalid(fmt.Sprintf("scheme %q: rule name is required", s.ID), nil)
		}
		if _, dup := names[r.Name]; dup {
			return invalid(fmt.Sprintf("scheme %q: duplicate rule %q", s.ID, r.Name), nil)
		}
		names[r.Name] = struct{}{}
		if r.Weight <= 0 {
			return invalid(fmt.Sprintf("scheme %q rule %q: weight must be positive", s.ID, r.Name), nil)
		}
		switch p := r.Predicate.(type) {
		case entity.MinArea:
			if p.Hectares < 0 {
				return invalid(fmt.Sprintf("scheme %q rule %q: negative threshold", s.ID, r.Name), nil)
			}
			minArea = max(minArea, p.Hectares)
		case entity.MaxArea:
			if p.Hectares < 0 {
				return invalid(fmt.Sprintf("scheme %q rule %q: negative threshold", s.ID, r.Name), nil)
			}
			if maxArea < 0 || p.Hectares < maxArea {
				maxArea = p.Hectares
			}
		case entity.AllowedStatus:
			if len(p.Statuses) == 0 {
				return invalid(fmt.Sprintf("scheme %q rule %q: no allowed statuses", s.ID, r.Name), nil)
			}
			for _, st := range p.Statuses {
				if !constants.IsValidStatus(string(st)) {
					return invalid(fmt.Sprintf("scheme %q rule %q: unknown status %q", s.ID, r.Name, st), nil)
				}
			}
		}
	}
	if minArea >= 0 && maxArea >= 0 && minArea > maxArea {
		return invalid(fmt.Sprintf("scheme %q: min_area %.2f exceeds max_area %.2f", s.ID, minArea, maxArea), nil)
	}
	return nil
}

func toJSON(data []byte, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "json":
		if !json.Valid(data) {
			return nil, errors.New("malformed json")
		}
		return data, nil
	case "yaml", "yml":
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return json.Marshal(v)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}
}

func validateDocument(doc []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("catalog.schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("catalog.schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("unmarshal catalog: %w", err)
	}
	return schema.Validate(v)
}

func invalid(msg string, cause error) error {
	if cause != nil {
		return common.NewAppError(common.CodeInvalidScheme, msg, fmt.Errorf("%w: %w", common.ErrInvalidSchemeDefinition, cause))
	}
	return common.NewAppError(common.CodeInvalidScheme, msg, common.ErrInvalidSchemeDefinition)
}
