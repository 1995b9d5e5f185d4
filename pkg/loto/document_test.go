package loto

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func fixedClock() time.Time {
	return time.Date(2025, time.March, 14, 10, 30, 0, 0, time.UTC)
}

func TestSerializeFullReport(t *testing.T) {
	s := &Serializer{Catalog: testCatalog(), Now: fixedClock}

	static := StaticFields{
		Name:            "press_7_annual",
		Description:     "Hydraulic press annual LOTO",
		ProcedureNumber: "42",
		Facility:        "Plant 2",
		Revision:        "3",
		Date:            "2025-03-10",
		MachineImage:    &PhotoRef{FileName: `C:\fakepath\press7.jpg`},
	}

	rec := &SourceRecord{Index: 0, EnergyType: "Electric", ExtraValues: map[string]string{}}
	rec.SetExtra("volts", "1200")
	rec.Device = CatalogChoice("Main Disconnect")
	rec.IsolationMethod = CustomChoice("lock and double tag")
	rec.VerificationMethod = CatalogChoice("Voltmeter test")
	rec.Tag = "E-01"
	rec.IsolationPoint = &PhotoRef{FileName: "breaker.jpg"}

	doc := s.Serialize(static, []*SourceRecord{rec})

	if doc.Date != "03/10/2025" {
		t.Errorf("date = %q, want 03/10/2025", doc.Date)
	}
	if doc.MachineImage != "press7.jpg" {
		t.Errorf("machine image = %q, want bare filename", doc.MachineImage)
	}
	if len(doc.Sources) != 1 {
		t.Fatalf("sources = %d, want 1", len(doc.Sources))
	}
	src := doc.Sources[0]
	if v, _ := src.Extra("volts"); v != "1,200 volts" {
		t.Errorf("volts = %q, want \"1,200 volts\"", v)
	}
	if src.IsolationMethod != "lock and double tag" {
		t.Errorf("custom override must serialize as its plain text, got %q", src.IsolationMethod)
	}
	if src.IsolationPoint != "breaker.jpg" {
		t.Errorf("isolation point = %q", src.IsolationPoint)
	}
}

func TestSerializeEmptyDateDefaultsToToday(t *testing.T) {
	s := &Serializer{Catalog: testCatalog(), Now: fixedClock}
	doc := s.Serialize(StaticFields{Name: "x"}, nil)
	if doc.Date != "03/14/2025" {
		t.Errorf("empty date = %q, want today's 03/14/2025", doc.Date)
	}
	if doc.CompletedDate != "03/14/2025" {
		t.Errorf("empty completed date = %q, want 03/14/2025", doc.CompletedDate)
	}
}

func TestSerializeDropsEmptySources(t *testing.T) {
	s := &Serializer{Catalog: testCatalog(), Now: fixedClock}

	empty := &SourceRecord{Index: 0, EnergyType: "Electric", ExtraValues: map[string]string{}}
	populated := &SourceRecord{Index: 1, EnergyType: "Electric", ExtraValues: map[string]string{}}
	populated.Tag = "E-02"

	doc := s.Serialize(StaticFields{}, []*SourceRecord{empty, populated})
	if len(doc.Sources) != 1 {
		t.Fatalf("sources = %d, want 1 (energy-type-only record dropped)", len(doc.Sources))
	}
	if doc.Sources[0].Tag != "E-02" {
		t.Errorf("surviving source tag = %q", doc.Sources[0].Tag)
	}
}

func TestSourceEntryKeyOrder(t *testing.T) {
	s := &Serializer{Catalog: testCatalog(), Now: fixedClock}

	rec := &SourceRecord{Index: 0, EnergyType: "Chemical", ExtraValues: map[string]string{}}
	rec.SetExtra("pressure", "90")
	rec.SetExtra("chemical_name", "Ammonia")
	rec.Device = CatalogChoice("Line Valve")
	rec.Tag = "C-01"
	rec.Description = "supply line"
	rec.IsolationMethod = CatalogChoice("Close valve")
	rec.VerificationMethod = CatalogChoice("Gauge reading")
	rec.IsolationPoint = &PhotoRef{FileName: "valve.png"}
	rec.VerificationDevice = &PhotoRef{FileName: "gauge.png"}

	doc := s.Serialize(StaticFields{}, []*SourceRecord{rec})
	data, err := json.Marshal(doc.Sources[0])
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"energy_source", "device", "chemical_name", "pressure", "tag",
		"source_description", "isolation_point", "isolation_method",
		"verification_method", "verification_device",
	}
	got := keyOrder(t, data)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("key order = %v, want %v", got, want)
	}
}

func TestSourceEntryOmitsEmptyKeys(t *testing.T) {
	entry := SourceEntry{EnergySource: "Electric", Tag: "E-01"}
	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatal(err)
	}
	got := keyOrder(t, data)
	if strings.Join(got, ",") != "energy_source,tag" {
		t.Errorf("keys = %v, want only energy_source and tag", got)
	}
}

// keyOrder extracts the top-level key sequence from a JSON object,
// preserving document order.
func keyOrder(t *testing.T, data []byte) []string {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(string(data)))
	if _, err := dec.Token(); err != nil {
		t.Fatal(err)
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			t.Fatal(err)
		}
		keys = append(keys, tok.(string))
		var discard json.RawMessage
		if err := dec.Decode(&discard); err != nil {
			t.Fatal(err)
		}
	}
	return keys
}

func TestFormatThousands(t *testing.T) {
	tests := []struct{ in, want string }{
		{"0", "0"},
		{"999", "999"},
		{"1000", "1,000"},
		{"1200", "1,200"},
		{"1234567", "1,234,567"},
		{"already ok", "already ok"},
	}
	for _, tt := range tests {
		if got := formatThousands(tt.in); got != tt.want {
			t.Errorf("formatThousands(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDocumentPreservesUnknownExtraOrder(t *testing.T) {
	raw := `{
		"name": "legacy",
		"sources": [
			{"energy_source": "Steam", "temperature": "300 degrees", "flow": "12 gpm", "tag": "S-01"}
		]
	}`
	doc, err := ParseDocument([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	src := doc.Sources[0]
	if len(src.Extras) != 2 {
		t.Fatalf("extras = %d, want 2", len(src.Extras))
	}
	if src.Extras[0].Key != "temperature" || src.Extras[1].Key != "flow" {
		t.Errorf("extras out of order: %v", src.Extras)
	}
}

func TestDeserializeStatics(t *testing.T) {
	doc := &Document{
		Name:         "press_7_annual",
		Date:         "03/10/2025",
		MachineImage: "press7.jpg",
	}
	static := DeserializeStatics(doc)
	if static.Date != "2025-03-10" {
		t.Errorf("date = %q, want widget format 2025-03-10", static.Date)
	}
	if static.MachineImage == nil || !static.MachineImage.Stored {
		t.Error("machine image must come back as a stored reference")
	}
}

func TestApplyEntryRestoresChoicesAndStripsUnits(t *testing.T) {
	s := &Serializer{Catalog: testCatalog(), Now: fixedClock}
	rec := &SourceRecord{Index: 0, EnergyType: "Electric", ExtraValues: map[string]string{}}

	entry := SourceEntry{
		EnergySource:       "Electric",
		Device:             "Main Disconnect",
		Extras:             []ExtraValue{{Key: "volts", Value: "1,200 volts"}},
		IsolationMethod:    "lock and double tag",
		VerificationMethod: "Voltmeter test",
		IsolationPoint:     "breaker.jpg",
	}
	s.ApplyEntry(entry, rec)

	if rec.Device.Custom || rec.Device.Resolve() != "Main Disconnect" {
		t.Errorf("known option must rehydrate as a catalog choice: %+v", rec.Device)
	}
	if !rec.IsolationMethod.Custom {
		t.Error("value outside the options list must rehydrate as a custom override")
	}
	if rec.ExtraValues["volts"] != "1200" {
		t.Errorf("volts = %q, want bare digits 1200", rec.ExtraValues["volts"])
	}
	if rec.IsolationPoint == nil || !rec.IsolationPoint.Stored {
		t.Error("photo must rehydrate as a stored reference")
	}
}

func TestRoundTripStability(t *testing.T) {
	s := &Serializer{Catalog: testCatalog(), Now: fixedClock}

	static := StaticFields{
		Name: "press_7_annual",
		Date: "2025-03-10",
	}
	rec := &SourceRecord{Index: 0, EnergyType: "Electric", ExtraValues: map[string]string{}}
	rec.SetExtra("volts", "1200")
	rec.Device = CatalogChoice("Main Disconnect")
	rec.Tag = "E-01"

	first, err := json.Marshal(s.Serialize(static, []*SourceRecord{rec}))
	if err != nil {
		t.Fatal(err)
	}

	doc, err := ParseDocument(first)
	if err != nil {
		t.Fatal(err)
	}
	static2 := DeserializeStatics(doc)
	rec2 := &SourceRecord{Index: 0, EnergyType: doc.Sources[0].EnergySource, ExtraValues: map[string]string{}}
	s.ApplyEntry(doc.Sources[0], rec2)

	second, err := json.Marshal(s.Serialize(static2, []*SourceRecord{rec2}))
	if err != nil {
		t.Fatal(err)
	}

	if string(first) != string(second) {
		t.Errorf("round trip not stable:\nfirst:  %s\nsecond: %s", first, second)
	}
}
