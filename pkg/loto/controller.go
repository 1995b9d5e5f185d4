package loto

import (
	"errors"
	"time"
)

// ErrBlocked is returned when generation is requested while a field is
// invalid or a required static field is still empty.
var ErrBlocked = errors.New("form is not in a generatable state")

// Static field identifiers tracked by the validity map. These are the
// form's numeric-validated inputs plus the machine image picker.
const (
	FieldProcedureNumber = "procedure_number"
	FieldRevision        = "revision"
	FieldOrigin          = "origin"
	FieldIsolationPoints = "isolation_points"
	FieldMachineImage    = "machine_image"
)

// PhotoSlot names the two per-source photo fields.
type PhotoSlot string

const (
	SlotIsolationPoint     PhotoSlot = "isolation_point"
	SlotVerificationDevice PhotoSlot = "verification_device"
)

// SelectField names the three catalog-backed selections of a source.
type SelectField string

const (
	SelectDevice             SelectField = "device"
	SelectIsolationMethod    SelectField = "isolation_method"
	SelectVerificationMethod SelectField = "verification_method"
)

// ButtonState is the enablement of the form's action buttons, recomputed
// after every mutation that can affect it.
type ButtonState struct {
	Generate     bool
	Download     bool
	Upload       bool
	AddSource    bool
	RemoveSource bool
}

// Config tunes a controller.
type Config struct {
	// MaxSources caps the repeatable records; <= 0 selects the default.
	MaxSources int
	// RequiredStatics lists static fields that must be non-empty before
	// the generate/download/upload actions enable. Empty means no
	// minimum is enforced.
	RequiredStatics []string
	// Now overrides the clock used for date fallbacks.
	Now func() time.Time
}

// Controller owns all mutable form state for one report editing session:
// the static fields, the source records, and the validity map that gates
// the action buttons. Components never share free-floating state; every
// read or mutation goes through controller methods.
type Controller struct {
	catalog    *Catalog
	validity   *ValidityMap
	manager    *RecordManager
	serializer *Serializer

	static   StaticFields
	required []string

	// previewGen supersedes in-flight photo preview loads: only the most
	// recently started load per field may complete.
	previewGen map[string]uint64
}

// NewController builds a controller over the given catalog. The static
// numeric fields and the machine image are registered immediately, all
// initially valid.
func NewController(catalog *Catalog, cfg Config) *Controller {
	validity := NewValidityMap()
	c := &Controller{
		catalog:    catalog,
		validity:   validity,
		manager:    NewRecordManager(catalog, validity, cfg.MaxSources),
		serializer: &Serializer{Catalog: catalog, Now: cfg.Now},
		required:   cfg.RequiredStatics,
		previewGen: make(map[string]uint64),
	}
	for _, id := range []string{FieldProcedureNumber, FieldRevision, FieldOrigin, FieldIsolationPoints, FieldMachineImage} {
		validity.Register(id)
	}
	return c
}

// Statics returns a copy of the current static field state.
func (c *Controller) Statics() StaticFields { return c.static }

// Records returns the live source records in order.
func (c *Controller) Records() []*SourceRecord { return c.manager.Records() }

// SourceCount returns the number of live source records.
func (c *Controller) SourceCount() int { return c.manager.Count() }

// Validity exposes the map for read-side inspection.
func (c *Controller) Validity() *ValidityMap { return c.validity }

// Buttons computes the current action button enablement.
func (c *Controller) Buttons() ButtonState {
	return ButtonState{
		Generate:     c.generatable(),
		Download:     c.generatable(),
		Upload:       c.generatable(),
		AddSource:    c.manager.Count() < c.manager.MaxSources(),
		RemoveSource: c.manager.Count() > 0,
	}
}

func (c *Controller) generatable() bool {
	if !c.validity.AllValid() {
		return false
	}
	for _, name := range c.required {
		if c.staticValue(name) == "" {
			return false
		}
	}
	return true
}

func (c *Controller) staticValue(name string) string {
	switch name {
	case "name":
		return c.static.Name
	case "description":
		return c.static.Description
	case FieldProcedureNumber:
		return c.static.ProcedureNumber
	case "facility":
		return c.static.Facility
	case "location":
		return c.static.Location
	case FieldRevision:
		return c.static.Revision
	case "date":
		return c.static.Date
	case FieldOrigin:
		return c.static.Origin
	case FieldMachineImage:
		if c.static.MachineImage != nil {
			return c.static.MachineImage.FileName
		}
		return ""
	case FieldIsolationPoints:
		return c.static.IsolationPoints
	case "notes":
		return c.static.Notes
	case "approved_by":
		return c.static.ApprovedBy
	case "prepared_by":
		return c.static.PreparedBy
	case "approved_by_company":
		return c.static.ApprovedByCompany
	case "completed_date":
		return c.static.CompletedDate
	}
	return ""
}

// SetStatic updates a report-level text field, running the numeric rule
// on the fields that carry it.
func (c *Controller) SetStatic(name, value string) Result {
	res := Result{Valid: true}
	switch name {
	case "name":
		c.static.Name = value
	case "description":
		c.static.Description = value
	case FieldProcedureNumber:
		c.static.ProcedureNumber = value
		res = c.checkNumeric(FieldProcedureNumber, value)
	case "facility":
		c.static.Facility = value
	case "location":
		c.static.Location = value
	case FieldRevision:
		c.static.Revision = value
		res = c.checkNumeric(FieldRevision, value)
	case "date":
		c.static.Date = value
	case FieldOrigin:
		c.static.Origin = value
		res = c.checkNumeric(FieldOrigin, value)
	case FieldIsolationPoints:
		c.static.IsolationPoints = value
		res = c.checkNumeric(FieldIsolationPoints, value)
	case "notes":
		c.static.Notes = value
	case "approved_by":
		c.static.ApprovedBy = value
	case "prepared_by":
		c.static.PreparedBy = value
	case "approved_by_company":
		c.static.ApprovedByCompany = value
	case "completed_date":
		c.static.CompletedDate = value
	}
	return res
}

func (c *Controller) checkNumeric(id, value string) Result {
	res := ValidateNumeric(value)
	c.validity.Set(id, res.Valid)
	return res
}

// SetMachineImage validates and stores the machine photo selection; nil
// clears it.
func (c *Controller) SetMachineImage(file *ImageMeta) Result {
	res := ValidateImage(file)
	c.validity.Set(FieldMachineImage, res.Valid)
	if file == nil {
		c.static.MachineImage = nil
	} else if res.Valid {
		c.static.MachineImage = &PhotoRef{FileName: file.Name}
	} else {
		c.static.MachineImage = nil
	}
	return res
}

// AddSource appends a new source record for the chosen energy type (the
// first catalog type when empty).
func (c *Controller) AddSource(energyType string) (*SourceRecord, error) {
	return c.manager.Add(energyType)
}

// RemoveLastSource removes the newest record, consulting confirm when it
// holds data. Declining leaves everything unchanged.
func (c *Controller) RemoveLastSource(confirm Confirmer) bool {
	return c.manager.RemoveLast(confirm)
}

// ChangeEnergyType rebuilds a record's dependent fields for a new type.
func (c *Controller) ChangeEnergyType(rec *SourceRecord, newType string) error {
	return c.manager.ChangeEnergyType(rec, newType)
}

// SetExtraField updates one of a record's catalog-driven extra fields,
// dispatching validation on the field's kind descriptor.
func (c *Controller) SetExtraField(rec *SourceRecord, name, value string) Result {
	rec.SetExtra(name, value)
	res := Result{Valid: true}
	if def, ok := c.catalog.Lookup(rec.EnergyType); ok {
		if f, ok := def.Field(name); ok && f.Kind != FieldFreeText {
			res = ValidateNumeric(value)
		}
	}
	c.validity.Set(rec.FieldID(name), res.Valid)
	return res
}

// SetChoice updates one of a record's catalog-backed selections.
func (c *Controller) SetChoice(rec *SourceRecord, field SelectField, choice Choice) {
	switch field {
	case SelectDevice:
		rec.Device = choice
	case SelectIsolationMethod:
		rec.IsolationMethod = choice
	case SelectVerificationMethod:
		rec.VerificationMethod = choice
	}
}

// SetTag updates a record's tag.
func (c *Controller) SetTag(rec *SourceRecord, tag string) { rec.Tag = tag }

// SetSourceDescription updates a record's description.
func (c *Controller) SetSourceDescription(rec *SourceRecord, desc string) {
	rec.Description = desc
}

// SetSourcePhoto validates and stores a per-source photo selection; nil
// clears the slot.
func (c *Controller) SetSourcePhoto(rec *SourceRecord, slot PhotoSlot, file *ImageMeta) Result {
	res := ValidateImage(file)
	id := rec.FieldID(string(slot))
	c.validity.Set(id, res.Valid)
	var ref *PhotoRef
	if file != nil && res.Valid {
		ref = &PhotoRef{FileName: file.Name}
	}
	switch slot {
	case SlotIsolationPoint:
		rec.IsolationPoint = ref
	case SlotVerificationDevice:
		rec.VerificationDevice = ref
	}
	return res
}

// StartPreview marks a new in-flight preview load for a photo field and
// returns its generation token.
func (c *Controller) StartPreview(fieldID string) uint64 {
	c.previewGen[fieldID]++
	return c.previewGen[fieldID]
}

// FinishPreview reports whether a completed load is still current. A
// load superseded by a newer selection must be discarded so a stale
// preview never replaces the most recent file's.
func (c *Controller) FinishPreview(fieldID string, gen uint64) bool {
	return c.previewGen[fieldID] == gen
}

// Generate serializes the current form state. It refuses while the
// action buttons are disabled so callers cannot bypass the gate.
func (c *Controller) Generate() (*Document, error) {
	if !c.generatable() {
		return nil, ErrBlocked
	}
	return c.serializer.Serialize(c.static, c.manager.Records()), nil
}

// DownloadName is the filename for a generated document: the report name
// when present, otherwise a dated untitled fallback.
func (c *Controller) DownloadName() string {
	if name := c.static.Name; name != "" {
		return name + ".json"
	}
	return c.serializer.now().Format("20060102") + "_untitledReport.json"
}

// LoadDocument rehydrates the form from a previously generated document:
// existing records are discarded, then one record per source entry is
// materialized with the entry's energy type and values. Energy types the
// catalog no longer defines still materialize, with their values carried
// as overrides, so an old report remains editable.
func (c *Controller) LoadDocument(doc *Document) error {
	if !c.catalog.Loaded() {
		return ErrCatalogNotLoaded
	}
	c.Reset()
	c.static = DeserializeStatics(doc)
	for _, entry := range doc.Sources {
		rec, err := c.manager.Add(entry.EnergySource)
		if errors.Is(err, ErrUnknownEnergyType) {
			rec, err = c.manager.addDetachedType(entry.EnergySource)
		}
		if err != nil {
			return err
		}
		c.serializer.ApplyEntry(entry, rec)
	}
	return nil
}

// Reset returns the form to its initial empty state.
func (c *Controller) Reset() {
	c.manager.removeAll()
	c.static = StaticFields{}
	c.validity.Set(FieldProcedureNumber, true)
	c.validity.Set(FieldRevision, true)
	c.validity.Set(FieldOrigin, true)
	c.validity.Set(FieldIsolationPoints, true)
	c.validity.Set(FieldMachineImage, true)
}
