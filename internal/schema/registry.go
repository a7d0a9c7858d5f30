package schema

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	apperrors "tradestat/internal/errors"
)

const (
	defaultHeaderScanWindow  = 20
	defaultBalanceTolerance  = 1e-6
	defaultShareSumTolerance = 0.005
)

// TableSpec is the registry entry for one table family: where its workbook
// lives, how to locate the table inside the sheet, the column mapping to
// canonical fields, derived-field formulas, and the validation rule set.
type TableSpec struct {
	ID               string   `yaml:"id" validate:"required"`
	Workbook         string   `yaml:"workbook" validate:"required"`
	Sheet            string   `yaml:"sheet,omitempty"`
	HeaderScanWindow int      `yaml:"header_scan_window,omitempty"`
	MinHeaderCells   int      `yaml:"min_header_cells,omitempty"`
	FootnotePrefixes []string `yaml:"footnote_prefixes,omitempty"`
	PeriodField      string   `yaml:"period_field" validate:"required"`

	Fields  []FieldSpec   `yaml:"fields" validate:"required,min=1,dive"`
	Derived []DerivedSpec `yaml:"derived,omitempty" validate:"dive"`
	Rules   RuleSet       `yaml:"rules,omitempty"`

	labelIndex map[string]string
}

// Field returns the base field spec for an ID.
func (t *TableSpec) Field(id string) (*FieldSpec, bool) {
	for i := range t.Fields {
		if t.Fields[i].ID == id {
			return &t.Fields[i], true
		}
	}
	return nil, false
}

// BaseFieldIDs returns the base field identifiers in declaration order.
func (t *TableSpec) BaseFieldIDs() []string {
	ids := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		ids[i] = f.ID
	}
	return ids
}

// AllFieldIDs returns base then derived field identifiers in declaration
// order. This is the schema-closure field set and the export order.
func (t *TableSpec) AllFieldIDs() []string {
	ids := t.BaseFieldIDs()
	for _, d := range t.Derived {
		ids = append(ids, d.ID)
	}
	return ids
}

// RequiredFieldIDs returns the IDs of required base fields.
func (t *TableSpec) RequiredFieldIDs() []string {
	var ids []string
	for _, f := range t.Fields {
		if f.Required {
			ids = append(ids, f.ID)
		}
	}
	return ids
}

// FieldForLabel resolves a normalized header label to a field ID.
func (t *TableSpec) FieldForLabel(normalized string) (string, bool) {
	id, ok := t.labelIndex[normalized]
	return id, ok
}

// Registry is the process-wide schema registry: loaded once before any
// pipeline run, read-only thereafter, and passed explicitly to components.
type Registry struct {
	tables map[string]*TableSpec
	order  []string
}

// Load reads and validates a registry document from a YAML file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigError("read schema registry", err)
	}

	var doc struct {
		Tables []TableSpec `yaml:"tables"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.NewConfigError("parse schema registry", err)
	}

	return FromSpecs(doc.Tables)
}

// FromSpecs builds a registry from already-unmarshalled table specs.
func FromSpecs(specs []TableSpec) (*Registry, error) {
	if len(specs) == 0 {
		return nil, apperrors.NewConfigError("schema registry declares no tables", nil)
	}

	v := validator.New()
	reg := &Registry{tables: make(map[string]*TableSpec, len(specs))}

	for i := range specs {
		spec := specs[i]
		if err := v.Struct(spec); err != nil {
			return nil, apperrors.NewConfigError(
				fmt.Sprintf("table %q fails structural validation", spec.ID), err)
		}
		applyDefaults(&spec)
		if err := checkSemantics(&spec); err != nil {
			return nil, err
		}
		if err := buildLabelIndex(&spec); err != nil {
			return nil, err
		}
		if _, dup := reg.tables[spec.ID]; dup {
			return nil, apperrors.NewConfigError(
				fmt.Sprintf("duplicate table id %q", spec.ID), nil)
		}
		reg.tables[spec.ID] = &spec
		reg.order = append(reg.order, spec.ID)
	}

	return reg, nil
}

// Get returns the spec for a table identifier.
func (r *Registry) Get(id string) (*TableSpec, error) {
	spec, ok := r.tables[id]
	if !ok {
		return nil, apperrors.NewConfigError(
			fmt.Sprintf("unknown table id %q", id), nil)
	}
	return spec, nil
}

// IDs returns all registered table identifiers in registry order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

func applyDefaults(spec *TableSpec) {
	if spec.HeaderScanWindow == 0 {
		spec.HeaderScanWindow = defaultHeaderScanWindow
	}
	if spec.MinHeaderCells == 0 {
		// Derived from the expected column count: at least half the
		// declared fields must show a textual header, with a floor of 2.
		half := len(spec.Fields) / 2
		if half < 2 {
			half = 2
		}
		spec.MinHeaderCells = half
	}
	for i := range spec.Rules.Balances {
		if spec.Rules.Balances[i].Tolerance == 0 {
			spec.Rules.Balances[i].Tolerance = defaultBalanceTolerance
		}
	}
	for i := range spec.Rules.ShareSums {
		if spec.Rules.ShareSums[i].Tolerance == 0 {
			spec.Rules.ShareSums[i].Tolerance = defaultShareSumTolerance
		}
	}
}

func checkSemantics(spec *TableSpec) error {
	fieldIDs := make(map[string]FieldType, len(spec.Fields))
	for _, f := range spec.Fields {
		if _, dup := fieldIDs[f.ID]; dup {
			return apperrors.NewConfigError(
				fmt.Sprintf("table %q: duplicate field id %q", spec.ID, f.ID), nil)
		}
		fieldIDs[f.ID] = f.Type
	}

	periodType, ok := fieldIDs[spec.PeriodField]
	if !ok {
		return apperrors.NewConfigError(
			fmt.Sprintf("table %q: period_field %q is not a declared field", spec.ID, spec.PeriodField), nil)
	}
	if periodType != FieldPeriod {
		return apperrors.NewConfigError(
			fmt.Sprintf("table %q: period_field %q must have type period", spec.ID, spec.PeriodField), nil)
	}

	// Derived fields may read base fields and earlier derived fields.
	known := make(map[string]bool, len(fieldIDs))
	for id := range fieldIDs {
		known[id] = true
	}
	for _, d := range spec.Derived {
		if known[d.ID] {
			return apperrors.NewConfigError(
				fmt.Sprintf("table %q: derived field %q collides with an existing field", spec.ID, d.ID), nil)
		}
		for _, in := range d.Inputs() {
			if in == "" {
				return apperrors.NewConfigError(
					fmt.Sprintf("table %q: derived field %q is missing a formula argument", spec.ID, d.ID), nil)
			}
			if !known[in] {
				return apperrors.NewConfigError(
					fmt.Sprintf("table %q: derived field %q reads unknown field %q", spec.ID, d.ID, in), nil)
			}
		}
		known[d.ID] = true
	}

	for _, rule := range spec.Rules.Ranges {
		if !known[rule.Field] {
			return apperrors.NewConfigError(
				fmt.Sprintf("table %q: range rule targets unknown field %q", spec.ID, rule.Field), nil)
		}
	}
	for _, rule := range spec.Rules.Balances {
		for _, id := range []string{rule.Result, rule.Minuend, rule.Subtrahend} {
			if !known[id] {
				return apperrors.NewConfigError(
					fmt.Sprintf("table %q: balance rule targets unknown field %q", spec.ID, id), nil)
			}
		}
	}
	for _, rule := range spec.Rules.ShareSums {
		if len(rule.Values) > 0 && len(rule.Values) != len(rule.Shares) {
			return apperrors.NewConfigError(
				fmt.Sprintf("table %q: share_sum values must pair one-to-one with shares", spec.ID), nil)
		}
		ids := append([]string{}, rule.Shares...)
		ids = append(ids, rule.Values...)
		if rule.Total != "" {
			ids = append(ids, rule.Total)
		}
		for _, id := range ids {
			if !known[id] {
				return apperrors.NewConfigError(
					fmt.Sprintf("table %q: share_sum rule targets unknown field %q", spec.ID, id), nil)
			}
		}
	}

	return nil
}

func buildLabelIndex(spec *TableSpec) error {
	spec.labelIndex = make(map[string]string)
	for _, f := range spec.Fields {
		for _, label := range f.Labels {
			key := NormalizeLabel(label)
			if key == "" {
				return apperrors.NewConfigError(
					fmt.Sprintf("table %q: field %q has a label that normalizes to nothing", spec.ID, f.ID), nil)
			}
			if prev, dup := spec.labelIndex[key]; dup && prev != f.ID {
				return apperrors.NewConfigError(
					fmt.Sprintf("table %q: label %q maps to both %q and %q", spec.ID, label, prev, f.ID), nil)
			}
			spec.labelIndex[key] = f.ID
		}
	}
	return nil
}
