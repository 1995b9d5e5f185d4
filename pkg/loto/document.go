package loto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	documentDateLayout = "01/02/2006"
	widgetDateLayout   = "2006-01-02"
)

// StaticFields is the report-level form state outside the source records.
// Date fields hold the widget format (YYYY-MM-DD) while editing; the
// document format (MM/DD/YYYY) is applied at serialization.
type StaticFields struct {
	Name              string
	Description       string
	ProcedureNumber   string
	Facility          string
	Location          string
	Revision          string
	Date              string
	Origin            string
	MachineImage      *PhotoRef
	IsolationPoints   string
	Notes             string
	ApprovedBy        string
	PreparedBy        string
	ApprovedByCompany string
	CompletedDate     string
}

// ExtraValue is one catalog-driven extra field of a serialized source,
// keyed by field name with its display-formatted value.
type ExtraValue struct {
	Key   string
	Value string
}

// SourceEntry is one serialized source record. Key order within the JSON
// object is significant for downstream consumers and is fixed:
// energy_source, device, the extra fields (free-text ones such as
// chemical_name before the numeric ones), tag, source_description,
// isolation_point, isolation_method, verification_method,
// verification_device. Empty fields are omitted.
type SourceEntry struct {
	EnergySource       string
	Device             string
	Extras             []ExtraValue
	Tag                string
	SourceDescription  string
	IsolationPoint     string
	IsolationMethod    string
	VerificationMethod string
	VerificationDevice string
}

// isEmpty reports whether the entry holds nothing beyond the energy
// source selection; such entries are dropped from the document.
func (e SourceEntry) isEmpty() bool {
	return e.Device == "" && len(e.Extras) == 0 && e.Tag == "" &&
		e.SourceDescription == "" && e.IsolationPoint == "" &&
		e.IsolationMethod == "" && e.VerificationMethod == "" &&
		e.VerificationDevice == ""
}

// MarshalJSON emits the entry's keys in the fixed document order,
// omitting empty values.
func (e SourceEntry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writePair := func(key, value string) {
		if value == "" {
			return
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(key)
		v, _ := json.Marshal(value)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	writePair("energy_source", e.EnergySource)
	writePair("device", e.Device)
	for _, ev := range e.Extras {
		writePair(ev.Key, ev.Value)
	}
	writePair("tag", e.Tag)
	writePair("source_description", e.SourceDescription)
	writePair("isolation_point", e.IsolationPoint)
	writePair("isolation_method", e.IsolationMethod)
	writePair("verification_method", e.VerificationMethod)
	writePair("verification_device", e.VerificationDevice)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON walks the object token by token so unrecognized keys keep
// their document order in Extras.
func (e *SourceEntry) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("source entry: expected object, got %v", tok)
	}
	*e = SourceEntry{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyTok.(string)
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("source entry %q: %w", key, err)
		}
		switch key {
		case "energy_source":
			e.EnergySource = value
		case "device":
			e.Device = value
		case "tag":
			e.Tag = value
		case "source_description":
			e.SourceDescription = value
		case "isolation_point":
			e.IsolationPoint = value
		case "isolation_method":
			e.IsolationMethod = value
		case "verification_method":
			e.VerificationMethod = value
		case "verification_device":
			e.VerificationDevice = value
		default:
			e.Extras = append(e.Extras, ExtraValue{Key: key, Value: value})
		}
	}
	_, err = dec.Token() // closing brace
	return err
}

// Extra returns a named extra value.
func (e SourceEntry) Extra(key string) (string, bool) {
	for _, ev := range e.Extras {
		if ev.Key == key {
			return ev.Value, true
		}
	}
	return "", false
}

// Document is the canonical serialized report: the persistence unit
// exchanged with the backend and the input to the update-report flow.
// Absent fields are omitted, never emitted as empty strings.
type Document struct {
	Name              string        `json:"name,omitempty"`
	Description       string        `json:"description,omitempty"`
	ProcedureNumber   string        `json:"procedure_number,omitempty"`
	Facility          string        `json:"facility,omitempty"`
	Location          string        `json:"location,omitempty"`
	Revision          string        `json:"revision,omitempty"`
	Date              string        `json:"date,omitempty"`
	Origin            string        `json:"origin,omitempty"`
	MachineImage      string        `json:"machine_image,omitempty"`
	IsolationPoints   string        `json:"isolation_points,omitempty"`
	Notes             string        `json:"notes,omitempty"`
	ApprovedBy        string        `json:"approved_by,omitempty"`
	PreparedBy        string        `json:"prepared_by,omitempty"`
	ApprovedByCompany string        `json:"approved_by_company,omitempty"`
	CompletedDate     string        `json:"completed_date,omitempty"`
	Sources           []SourceEntry `json:"sources,omitempty"`
}

// ParseDocument decodes a persisted report document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse report document: %w", err)
	}
	return &doc, nil
}

// PhotoNames lists every photo filename the document references, in
// document order: the machine image, then each source's isolation point
// and verification device.
func (d *Document) PhotoNames() []string {
	var names []string
	if d.MachineImage != "" {
		names = append(names, d.MachineImage)
	}
	for _, src := range d.Sources {
		if src.IsolationPoint != "" {
			names = append(names, src.IsolationPoint)
		}
		if src.VerificationDevice != "" {
			names = append(names, src.VerificationDevice)
		}
	}
	return names
}

// Serializer converts live form state to the canonical document and
// back. Now is injectable for the today's-date fallback; nil means
// time.Now.
type Serializer struct {
	Catalog *Catalog
	Now     func() time.Time
}

func (s *Serializer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Serialize reads the current form state into a document. It is a pure
// function of its inputs (plus the clock for empty dates): no field is
// mutated, and repeated calls over unchanged state yield identical
// documents.
func (s *Serializer) Serialize(static StaticFields, records []*SourceRecord) *Document {
	doc := &Document{
		Name:              strings.TrimSpace(static.Name),
		Description:       strings.TrimSpace(static.Description),
		ProcedureNumber:   strings.TrimSpace(static.ProcedureNumber),
		Facility:          strings.TrimSpace(static.Facility),
		Location:          strings.TrimSpace(static.Location),
		Revision:          strings.TrimSpace(static.Revision),
		Date:              s.formatDate(static.Date),
		Origin:            strings.TrimSpace(static.Origin),
		MachineImage:      photoName(static.MachineImage),
		IsolationPoints:   strings.TrimSpace(static.IsolationPoints),
		Notes:             strings.TrimSpace(static.Notes),
		ApprovedBy:        strings.TrimSpace(static.ApprovedBy),
		PreparedBy:        strings.TrimSpace(static.PreparedBy),
		ApprovedByCompany: strings.TrimSpace(static.ApprovedByCompany),
		CompletedDate:     s.formatDate(static.CompletedDate),
	}
	for _, rec := range records {
		if rec.EnergyType == "" {
			continue
		}
		entry := s.serializeRecord(rec)
		// A record with only an energy type selected is treated as empty
		// and dropped.
		if entry.isEmpty() {
			continue
		}
		doc.Sources = append(doc.Sources, entry)
	}
	return doc
}

func (s *Serializer) serializeRecord(rec *SourceRecord) SourceEntry {
	entry := SourceEntry{
		EnergySource:       rec.EnergyType,
		Device:             strings.TrimSpace(rec.Device.Resolve()),
		Tag:                strings.TrimSpace(rec.Tag),
		SourceDescription:  strings.TrimSpace(rec.Description),
		IsolationPoint:     photoName(rec.IsolationPoint),
		IsolationMethod:    strings.TrimSpace(rec.IsolationMethod.Resolve()),
		VerificationMethod: strings.TrimSpace(rec.VerificationMethod.Resolve()),
		VerificationDevice: photoName(rec.VerificationDevice),
	}

	def, known := s.Catalog.Lookup(rec.EnergyType)
	if !known {
		// Stale type the catalog no longer defines: pass the values
		// through in their recorded order so nothing is lost.
		for _, name := range rec.ExtraOrder {
			if v := strings.TrimSpace(rec.ExtraValues[name]); v != "" {
				entry.Extras = append(entry.Extras, ExtraValue{Key: name, Value: v})
			}
		}
		return entry
	}

	// Free-text extras (chemical_name) come before the numeric ones.
	var numeric []ExtraValue
	for _, f := range def.ExtraFields {
		v := strings.TrimSpace(rec.ExtraValues[f.Name])
		if v == "" {
			continue
		}
		switch f.Kind {
		case FieldFreeText:
			entry.Extras = append(entry.Extras, ExtraValue{Key: f.Name, Value: v})
		default:
			formatted := formatThousands(v)
			if f.Unit != "" {
				formatted += " " + f.Unit
			}
			numeric = append(numeric, ExtraValue{Key: f.Name, Value: formatted})
		}
	}
	entry.Extras = append(entry.Extras, numeric...)
	return entry
}

// formatDate converts a date field to the document format. Empty input
// defaults to the current date; widget input (YYYY-MM-DD) is converted;
// already-converted input (MM/DD/YYYY) passes through; anything else is
// dropped.
func (s *Serializer) formatDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return s.now().Format(documentDateLayout)
	}
	if t, err := time.Parse(widgetDateLayout, value); err == nil {
		return t.Format(documentDateLayout)
	}
	if t, err := time.Parse(documentDateLayout, value); err == nil {
		return t.Format(documentDateLayout)
	}
	return ""
}

// photoName reduces a photo reference to the base filename stored in the
// document; the bytes are uploaded as sibling artifacts, never embedded.
func photoName(ref *PhotoRef) string {
	if ref == nil {
		return ""
	}
	name := ref.FileName
	if i := strings.LastIndexAny(name, `\/`); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// formatThousands inserts thousands separators into a plain numeric
// string. Non-numeric input is returned unchanged.
func formatThousands(raw string) string {
	cleaned := strings.ReplaceAll(strings.ReplaceAll(raw, ",", ""), " ", "")
	neg := strings.HasPrefix(cleaned, "-")
	body := strings.TrimPrefix(cleaned, "-")
	intPart, fracPart, hasFrac := strings.Cut(body, ".")
	if !digitsOnly.MatchString(intPart) || (hasFrac && !digitsOnly.MatchString(fracPart)) {
		return raw
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	return b.String()
}

// DeserializeStatics rehydrates the report-level fields from a document.
// Dates are converted back to the widget format; the machine image comes
// back as a stored reference to be fetched from photo storage by name.
func DeserializeStatics(doc *Document) StaticFields {
	return StaticFields{
		Name:              doc.Name,
		Description:       doc.Description,
		ProcedureNumber:   doc.ProcedureNumber,
		Facility:          doc.Facility,
		Location:          doc.Location,
		Revision:          doc.Revision,
		Date:              widgetDate(doc.Date),
		Origin:            doc.Origin,
		MachineImage:      storedPhoto(doc.MachineImage),
		IsolationPoints:   doc.IsolationPoints,
		Notes:             doc.Notes,
		ApprovedBy:        doc.ApprovedBy,
		PreparedBy:        doc.PreparedBy,
		ApprovedByCompany: doc.ApprovedByCompany,
		CompletedDate:     widgetDate(doc.CompletedDate),
	}
}

// ApplyEntry fills a freshly created record from a serialized source.
// Catalog-backed values that are not members of the current options list
// come back as custom overrides rather than dangling selections; unit
// suffixes are stripped so the editable field holds bare digits again.
func (s *Serializer) ApplyEntry(entry SourceEntry, rec *SourceRecord) {
	def, known := s.Catalog.Lookup(rec.EnergyType)

	rec.Device = ChoiceFromValue(def.DeviceOptions, entry.Device)
	rec.IsolationMethod = ChoiceFromValue(def.IsolationMethodOptions, entry.IsolationMethod)
	rec.VerificationMethod = ChoiceFromValue(def.VerificationMethodOptions, entry.VerificationMethod)
	rec.Tag = entry.Tag
	rec.Description = entry.SourceDescription
	rec.IsolationPoint = storedPhoto(entry.IsolationPoint)
	rec.VerificationDevice = storedPhoto(entry.VerificationDevice)

	for _, ev := range entry.Extras {
		value := ev.Value
		if known {
			if f, ok := def.Field(ev.Key); ok && f.Kind != FieldFreeText {
				value = stripUnitSuffix(value, f.Unit)
			}
		}
		rec.SetExtra(ev.Key, value)
	}
}

// SetExtra records an extra field value, remembering first-seen key order
// for types the catalog cannot order.
func (r *SourceRecord) SetExtra(name, value string) {
	if _, seen := r.ExtraValues[name]; !seen {
		r.ExtraOrder = append(r.ExtraOrder, name)
	}
	r.ExtraValues[name] = value
}

// stripUnitSuffix undoes the display formatting of a numeric extra: the
// unit suffix and thousands separators are removed when what remains is
// a bare number. The document may legitimately carry values without the
// suffix, so absence is tolerated.
func stripUnitSuffix(value, unit string) string {
	v := strings.TrimSpace(value)
	if unit != "" {
		v = strings.TrimSpace(strings.TrimSuffix(v, unit))
	}
	bare := strings.ReplaceAll(strings.ReplaceAll(v, ",", ""), " ", "")
	if digitsOnly.MatchString(bare) {
		return bare
	}
	return v
}

func widgetDate(value string) string {
	if t, err := time.Parse(documentDateLayout, value); err == nil {
		return t.Format(widgetDateLayout)
	}
	return ""
}

func storedPhoto(name string) *PhotoRef {
	if name == "" {
		return nil
	}
	return &PhotoRef{FileName: name, Stored: true}
}
