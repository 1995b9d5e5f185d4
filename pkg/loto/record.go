package loto

import (
	"errors"
	"fmt"
)

// DefaultMaxSources is the deployment default for the source cap.
const DefaultMaxSources = 12

var (
	// ErrCatalogNotLoaded is returned when an operation needs catalog data
	// before the load has completed.
	ErrCatalogNotLoaded = errors.New("energy source catalog not loaded")
	// ErrUnknownEnergyType is returned when a type name has no catalog entry.
	ErrUnknownEnergyType = errors.New("unknown energy source type")
	// ErrMaxSources is returned when the source cap has been reached.
	ErrMaxSources = errors.New("maximum number of sources reached")
)

// PhotoRef is a reference to a photo tied to a source record. Stored
// references come from a persisted document and must be fetched from
// photo storage by name for preview; local ones were just picked in the
// form and their bytes are uploaded alongside the document.
type PhotoRef struct {
	FileName string
	Stored   bool
}

// SourceRecord is one repeatable sub-entry of the report describing a
// single point of energy isolation. Records are owned exclusively by the
// RecordManager.
type SourceRecord struct {
	// Index is the record's position key, stable for its lifetime and
	// never reused within a session. It namespaces field identifiers
	// (name_index) and orders the serialized sources; it is not the
	// mechanism that associates fields with the record.
	Index int

	EnergyType  string
	ExtraValues map[string]string
	// ExtraOrder remembers first-seen key order for extra values whose
	// type the catalog cannot order (rehydrated stale documents).
	ExtraOrder         []string
	Device             Choice
	IsolationMethod    Choice
	VerificationMethod Choice
	Tag                string
	Description        string
	IsolationPoint     *PhotoRef
	VerificationDevice *PhotoRef
}

// FieldID builds the namespaced identifier for one of the record's fields.
func (r *SourceRecord) FieldID(fieldName string) string {
	return fmt.Sprintf("%s_%d", fieldName, r.Index)
}

// Populated reports whether the record holds any data beyond the energy
// type selection. Unpopulated records are dropped at serialization time
// and removable without confirmation.
func (r *SourceRecord) Populated() bool {
	for _, v := range r.ExtraValues {
		if v != "" {
			return true
		}
	}
	return !r.Device.IsEmpty() ||
		!r.IsolationMethod.IsEmpty() ||
		!r.VerificationMethod.IsEmpty() ||
		r.Tag != "" ||
		r.Description != "" ||
		r.IsolationPoint != nil ||
		r.VerificationDevice != nil
}

// validityFieldIDs lists every identifier the record contributes to the
// validity map: its catalog-driven extra fields plus the two photo slots.
func (r *SourceRecord) validityFieldIDs(def TypeDefinition) []string {
	ids := make([]string, 0, len(def.ExtraFields)+2)
	for _, f := range def.ExtraFields {
		ids = append(ids, r.FieldID(f.Name))
	}
	ids = append(ids, r.FieldID("isolation_point"), r.FieldID("verification_device"))
	return ids
}

// Confirmer answers a destructive-action prompt. A nil Confirmer means
// "no UI available, proceed".
type Confirmer func(prompt string) bool

// RecordManager owns the ordered collection of source records for one
// report form. It is the only component that creates or destroys records
// and keeps the validity map in sync with their field sets.
type RecordManager struct {
	catalog  *Catalog
	validity *ValidityMap
	max      int

	records   []*SourceRecord
	nextIndex int
}

// NewRecordManager wires a manager to the catalog and validity map it
// maintains. maxSources <= 0 selects DefaultMaxSources.
func NewRecordManager(catalog *Catalog, validity *ValidityMap, maxSources int) *RecordManager {
	if maxSources <= 0 {
		maxSources = DefaultMaxSources
	}
	return &RecordManager{catalog: catalog, validity: validity, max: maxSources}
}

// Records returns the live records in order.
func (m *RecordManager) Records() []*SourceRecord { return m.records }

// Count returns the number of live records.
func (m *RecordManager) Count() int { return len(m.records) }

// MaxSources returns the configured cap.
func (m *RecordManager) MaxSources() int { return m.max }

// Add creates a new source record for the given energy type (the first
// catalog type when empty) and registers its fields as initially valid.
// It fails without side effects when the cap is reached or the catalog
// cannot resolve the type; triggering a whole record against an unloaded
// catalog is rejected, never silently degraded.
func (m *RecordManager) Add(energyType string) (*SourceRecord, error) {
	if len(m.records) >= m.max {
		return nil, ErrMaxSources
	}
	if !m.catalog.Loaded() {
		return nil, ErrCatalogNotLoaded
	}
	if energyType == "" {
		energyType = m.catalog.TypeNames()[0]
	}
	def, ok := m.catalog.Lookup(energyType)
	if !ok {
		return nil, ErrUnknownEnergyType
	}

	rec := &SourceRecord{
		Index:       m.nextIndex,
		EnergyType:  energyType,
		ExtraValues: make(map[string]string, len(def.ExtraFields)),
	}
	m.nextIndex++
	m.records = append(m.records, rec)
	for _, id := range rec.validityFieldIDs(def) {
		m.validity.Register(id)
	}
	return rec, nil
}

// RemoveLast destroys the most recently added record. When the record is
// populated the confirm callback is consulted first; declining abandons
// the removal entirely. The removed record's validity entries are
// unregistered. Returns whether a record was removed.
func (m *RecordManager) RemoveLast(confirm Confirmer) bool {
	if len(m.records) == 0 {
		return false
	}
	last := m.records[len(m.records)-1]
	if last.Populated() && confirm != nil &&
		!confirm("The last source contains data. Remove anyway?") {
		return false
	}
	def, _ := m.catalog.Lookup(last.EnergyType)
	for _, id := range last.validityFieldIDs(def) {
		m.validity.Remove(id)
	}
	for _, name := range last.ExtraOrder {
		m.validity.Remove(last.FieldID(name))
	}
	m.records = m.records[:len(m.records)-1]
	return true
}

// addDetachedType materializes a record whose energy type the catalog no
// longer defines. Used only by the rehydration path: the record carries
// its document values as overrides and tracks just its photo slots.
func (m *RecordManager) addDetachedType(energyType string) (*SourceRecord, error) {
	if len(m.records) >= m.max {
		return nil, ErrMaxSources
	}
	rec := &SourceRecord{
		Index:       m.nextIndex,
		EnergyType:  energyType,
		ExtraValues: make(map[string]string),
	}
	m.nextIndex++
	m.records = append(m.records, rec)
	m.validity.Register(rec.FieldID("isolation_point"))
	m.validity.Register(rec.FieldID("verification_device"))
	return rec, nil
}

// ChangeEnergyType rebuilds a record's dependent fields for a new energy
// type. The rebuild is destructive and transactional: extra values and
// the device/method selections (including custom overrides) are
// discarded together, and an unresolvable newType leaves the record
// untouched. Values are never carried across types even when a field
// name matches, since unit and validation semantics differ per type.
func (m *RecordManager) ChangeEnergyType(rec *SourceRecord, newType string) error {
	newDef, ok := m.catalog.Lookup(newType)
	if !ok {
		if !m.catalog.Loaded() {
			return ErrCatalogNotLoaded
		}
		return ErrUnknownEnergyType
	}
	if oldDef, ok := m.catalog.Lookup(rec.EnergyType); ok {
		for _, f := range oldDef.ExtraFields {
			m.validity.Remove(rec.FieldID(f.Name))
		}
	}

	rec.EnergyType = newType
	rec.ExtraValues = make(map[string]string, len(newDef.ExtraFields))
	rec.ExtraOrder = nil
	rec.Device = Choice{}
	rec.IsolationMethod = Choice{}
	rec.VerificationMethod = Choice{}
	for _, f := range newDef.ExtraFields {
		m.validity.Register(rec.FieldID(f.Name))
	}
	return nil
}

// removeAll clears every record without confirmation; used by the form
// reset and the rehydration path before materializing new records.
func (m *RecordManager) removeAll() {
	for len(m.records) > 0 {
		m.RemoveLast(nil)
	}
}
