// Package loto implements the lockout/tagout report form engine: the
// energy-source catalog, field validation, the repeatable source records,
// and the serialization of live form state to the canonical report
// document (and back, for the update-report flow).
package loto

// CustomSentinel is the select option value meaning "read the free-text
// override instead of a catalog choice". It is a UI-level token and never
// appears in a serialized document.
const CustomSentinel = "__custom__"

// CustomSentinelLabel is the display text for the sentinel option.
const CustomSentinelLabel = "Other (custom)"

// FieldKind selects the validation and formatting behavior of a catalog
// extra field.
type FieldKind string

const (
	// FieldNumeric fields accept digits only and are emitted with
	// thousands separators and the unit suffix appended.
	FieldNumeric FieldKind = "numeric"
	// FieldFreeText fields accept any text and are emitted verbatim
	// (e.g. chemical_name).
	FieldFreeText FieldKind = "free_text"
)

// FieldSpec describes one extra measurement field required by an energy
// source type.
type FieldSpec struct {
	Name  string    `json:"field_name"`
	Unit  string    `json:"unit_name"`
	Title string    `json:"title_name"`
	Kind  FieldKind `json:"kind,omitempty"`
}

// TypeDefinition is the catalog entry for a single energy source type.
type TypeDefinition struct {
	TypeName                  string      `json:"type_name"`
	ExtraFields               []FieldSpec `json:"inputs"`
	DeviceOptions             []string    `json:"device"`
	IsolationMethodOptions    []string    `json:"isolation_method"`
	VerificationMethodOptions []string    `json:"verification_method"`
}

// Catalog is the immutable energy-source reference data, loaded once per
// session. A nil or empty Catalog is a valid state (the load has not
// completed yet); all lookups simply miss.
type Catalog struct {
	order []string
	types map[string]TypeDefinition
}

// NewCatalog builds a catalog from an ordered list of type definitions.
// Extra fields with no explicit kind default to numeric, matching the
// form's validation rules.
func NewCatalog(defs []TypeDefinition) *Catalog {
	c := &Catalog{types: make(map[string]TypeDefinition, len(defs))}
	for _, def := range defs {
		for i := range def.ExtraFields {
			if def.ExtraFields[i].Kind == "" {
				def.ExtraFields[i].Kind = FieldNumeric
			}
		}
		if _, dup := c.types[def.TypeName]; dup {
			continue
		}
		c.order = append(c.order, def.TypeName)
		c.types[def.TypeName] = def
	}
	return c
}

// Lookup returns the definition for the given type name. A miss is a
// normal outcome, not an error: the catalog may not be loaded yet, or the
// name may come from a stale document.
func (c *Catalog) Lookup(typeName string) (TypeDefinition, bool) {
	if c == nil {
		return TypeDefinition{}, false
	}
	def, ok := c.types[typeName]
	return def, ok
}

// TypeNames returns the type names in catalog order.
func (c *Catalog) TypeNames() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Loaded reports whether the catalog holds any type definitions. Callers
// must treat an unloaded catalog as "defer or reject", never as "proceed
// with empty dropdowns".
func (c *Catalog) Loaded() bool {
	return c != nil && len(c.order) > 0
}

// Field returns the spec for a named extra field of the given type.
func (d TypeDefinition) Field(name string) (FieldSpec, bool) {
	for _, f := range d.ExtraFields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Choice is a selectable value: either one of the catalog's predefined
// options, or a free-text override entered behind the custom sentinel.
// The zero value is "nothing selected".
type Choice struct {
	Custom bool   `json:"custom,omitempty"`
	Value  string `json:"value,omitempty"`
}

// CatalogChoice wraps a predefined option.
func CatalogChoice(value string) Choice { return Choice{Value: value} }

// CustomChoice wraps a free-text override.
func CustomChoice(text string) Choice { return Choice{Custom: true, Value: text} }

// Resolve reduces the choice to the plain string that goes into the
// document.
func (ch Choice) Resolve() string { return ch.Value }

// IsEmpty reports whether nothing has been selected or typed.
func (ch Choice) IsEmpty() bool { return ch.Value == "" }

// ChoiceFromValue classifies a document value against the allowed options
// for a field: a member of the list is a catalog choice, anything else is
// presented as a custom override. This is the degradation path for
// documents that reference options the current catalog no longer defines.
func ChoiceFromValue(options []string, value string) Choice {
	if value == "" {
		return Choice{}
	}
	for _, opt := range options {
		if opt == value {
			return CatalogChoice(value)
		}
	}
	return CustomChoice(value)
}
