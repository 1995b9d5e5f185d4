package loto

import (
	"encoding/json"
	"errors"
	"testing"
)

func newTestController() *Controller {
	return NewController(testCatalog(), Config{Now: fixedClock})
}

func TestInvalidStaticBlocksActions(t *testing.T) {
	c := newTestController()
	if !c.Buttons().Generate {
		t.Fatal("fresh form should be generatable")
	}

	res := c.SetStatic(FieldProcedureNumber, "12a")
	if res.Valid {
		t.Fatal("12a should fail the numeric rule")
	}
	if res.Message != "must only be a number" {
		t.Errorf("message = %q", res.Message)
	}
	b := c.Buttons()
	if b.Generate || b.Download || b.Upload {
		t.Error("invalid field must disable generate, download and upload")
	}
	if _, err := c.Generate(); !errors.Is(err, ErrBlocked) {
		t.Errorf("Generate err = %v, want ErrBlocked", err)
	}

	c.SetStatic(FieldProcedureNumber, "12")
	if !c.Buttons().Generate {
		t.Error("fixing the field must re-enable the actions")
	}
}

func TestInvalidSourceFieldBlocksActions(t *testing.T) {
	c := newTestController()
	rec, err := c.AddSource("Electric")
	if err != nil {
		t.Fatal(err)
	}
	c.SetExtraField(rec, "volts", "12a")
	if c.Buttons().Generate {
		t.Error("invalid source field must disable generation")
	}
	c.SetExtraField(rec, "volts", "480")
	if !c.Buttons().Generate {
		t.Error("fixed source field must re-enable generation")
	}
}

func TestFreeTextExtraSkipsNumericRule(t *testing.T) {
	c := newTestController()
	rec, _ := c.AddSource("Chemical")
	res := c.SetExtraField(rec, "chemical_name", "Sodium Hydroxide")
	if !res.Valid {
		t.Error("free-text extra must not run the numeric rule")
	}
	if !c.Buttons().Generate {
		t.Error("generation should stay enabled")
	}
}

func TestRequiredStaticsGate(t *testing.T) {
	c := NewController(testCatalog(), Config{
		RequiredStatics: []string{"name"},
		Now:             fixedClock,
	})
	if c.Buttons().Generate {
		t.Error("empty required static must gate generation")
	}
	c.SetStatic("name", "press_7_annual")
	if !c.Buttons().Generate {
		t.Error("filling the required static must enable generation")
	}
}

func TestAddRemoveButtons(t *testing.T) {
	c := NewController(testCatalog(), Config{MaxSources: 2, Now: fixedClock})
	b := c.Buttons()
	if !b.AddSource || b.RemoveSource {
		t.Error("empty form: add enabled, remove disabled")
	}
	c.AddSource("")
	c.AddSource("")
	b = c.Buttons()
	if b.AddSource {
		t.Error("add must disable at the cap")
	}
	if !b.RemoveSource {
		t.Error("remove must enable with records present")
	}
}

func TestMachineImageValidation(t *testing.T) {
	c := newTestController()
	res := c.SetMachineImage(&ImageMeta{Name: "scan.pdf", MIMEType: "application/pdf"})
	if res.Valid {
		t.Fatal("pdf must be rejected")
	}
	if c.Buttons().Generate {
		t.Error("rejected machine image must block generation")
	}
	if c.Statics().MachineImage != nil {
		t.Error("rejected file must not be stored")
	}

	c.SetMachineImage(&ImageMeta{Name: "press7.jpg", MIMEType: "image/jpeg"})
	if !c.Buttons().Generate {
		t.Error("valid image must unblock generation")
	}

	c.SetMachineImage(nil)
	if c.Statics().MachineImage != nil {
		t.Error("nil must clear the selection")
	}
	if !c.Buttons().Generate {
		t.Error("cleared selection is valid")
	}
}

func TestPreviewSupersession(t *testing.T) {
	c := newTestController()
	first := c.StartPreview(FieldMachineImage)
	second := c.StartPreview(FieldMachineImage)

	if c.FinishPreview(FieldMachineImage, first) {
		t.Error("superseded preview load must be discarded")
	}
	if !c.FinishPreview(FieldMachineImage, second) {
		t.Error("latest preview load must be accepted")
	}
}

func TestDownloadName(t *testing.T) {
	c := newTestController()
	if got := c.DownloadName(); got != "20250314_untitledReport.json" {
		t.Errorf("untitled download name = %q", got)
	}
	c.SetStatic("name", "press_7_annual")
	if got := c.DownloadName(); got != "press_7_annual.json" {
		t.Errorf("download name = %q", got)
	}
}

func TestGenerateSerializesCurrentState(t *testing.T) {
	c := newTestController()
	c.SetStatic("name", "press_7_annual")
	c.SetStatic("date", "2025-03-10")
	rec, _ := c.AddSource("Electric")
	c.SetExtraField(rec, "volts", "1200")
	c.SetTag(rec, "E-01")

	doc, err := c.Generate()
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "press_7_annual" || doc.Date != "03/10/2025" {
		t.Errorf("statics: name=%q date=%q", doc.Name, doc.Date)
	}
	if len(doc.Sources) != 1 {
		t.Fatalf("sources = %d, want 1", len(doc.Sources))
	}
	if v, _ := doc.Sources[0].Extra("volts"); v != "1,200 volts" {
		t.Errorf("volts = %q", v)
	}
}

func TestLoadDocumentRoundTrip(t *testing.T) {
	c := newTestController()
	c.SetStatic("name", "press_7_annual")
	c.SetStatic("date", "2025-03-10")
	rec, _ := c.AddSource("Electric")
	c.SetExtraField(rec, "volts", "1200")
	c.SetChoice(rec, SelectDevice, CatalogChoice("Main Disconnect"))
	c.SetTag(rec, "E-01")

	doc, err := c.Generate()
	if err != nil {
		t.Fatal(err)
	}
	first, _ := json.Marshal(doc)

	c2 := newTestController()
	parsed, err := ParseDocument(first)
	if err != nil {
		t.Fatal(err)
	}
	if err := c2.LoadDocument(parsed); err != nil {
		t.Fatal(err)
	}
	if c2.SourceCount() != 1 {
		t.Fatalf("rehydrated source count = %d", c2.SourceCount())
	}
	if got := c2.Records()[0].ExtraValues["volts"]; got != "1200" {
		t.Errorf("rehydrated volts = %q, want bare digits", got)
	}

	doc2, err := c2.Generate()
	if err != nil {
		t.Fatal(err)
	}
	second, _ := json.Marshal(doc2)
	if string(first) != string(second) {
		t.Errorf("load/generate not stable:\nfirst:  %s\nsecond: %s", first, second)
	}
}

func TestLoadDocumentUnknownTypeStaysEditable(t *testing.T) {
	c := newTestController()
	raw := `{
		"name": "legacy",
		"sources": [
			{"energy_source": "Steam", "temperature": "300 degrees", "tag": "S-01"}
		]
	}`
	doc, err := ParseDocument([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.LoadDocument(doc); err != nil {
		t.Fatalf("unknown energy type must still load: %v", err)
	}
	rec := c.Records()[0]
	if rec.EnergyType != "Steam" {
		t.Errorf("energy type = %q", rec.EnergyType)
	}
	if rec.ExtraValues["temperature"] != "300 degrees" {
		t.Errorf("stale extra = %q, want value carried as-is", rec.ExtraValues["temperature"])
	}

	out, err := c.Generate()
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := out.Sources[0].Extra("temperature"); v != "300 degrees" {
		t.Errorf("reserialized stale extra = %q", v)
	}
}

func TestLoadDocumentAgainstUnloadedCatalog(t *testing.T) {
	c := NewController(NewCatalog(nil), Config{Now: fixedClock})
	doc := &Document{Name: "x"}
	if err := c.LoadDocument(doc); !errors.Is(err, ErrCatalogNotLoaded) {
		t.Errorf("err = %v, want ErrCatalogNotLoaded", err)
	}
}

func TestLoadDocumentReplacesExistingState(t *testing.T) {
	c := newTestController()
	c.SetStatic("name", "stale_edit")
	c.AddSource("Electric")
	c.AddSource("Chemical")

	doc := &Document{
		Name:    "replacement",
		Sources: []SourceEntry{{EnergySource: "Electric", Tag: "E-09"}},
	}
	if err := c.LoadDocument(doc); err != nil {
		t.Fatal(err)
	}
	if c.Statics().Name != "replacement" {
		t.Errorf("name = %q", c.Statics().Name)
	}
	if c.SourceCount() != 1 {
		t.Errorf("source count = %d, want the document's 1", c.SourceCount())
	}
}

func TestResetClearsInvalidState(t *testing.T) {
	c := newTestController()
	c.SetStatic(FieldProcedureNumber, "12a")
	rec, _ := c.AddSource("Electric")
	c.SetExtraField(rec, "volts", "bad")
	if c.Buttons().Generate {
		t.Fatal("setup: form should be blocked")
	}

	c.Reset()
	if c.SourceCount() != 0 {
		t.Errorf("source count after reset = %d", c.SourceCount())
	}
	if !c.Buttons().Generate {
		t.Error("reset form must be generatable again")
	}
}
