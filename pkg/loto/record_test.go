package loto

import (
	"errors"
	"testing"
)

// testCatalog mirrors the shape of the seeded energy source schema,
// trimmed to what the tests exercise.
func testCatalog() *Catalog {
	return NewCatalog([]TypeDefinition{
		{
			TypeName: "Electric",
			ExtraFields: []FieldSpec{
				{Name: "volts", Unit: "volts", Title: "Voltage"},
			},
			DeviceOptions:             []string{"Main Disconnect", "Breaker Panel"},
			IsolationMethodOptions:    []string{"Switch to OFF position"},
			VerificationMethodOptions: []string{"Voltmeter test"},
		},
		{
			TypeName: "Chemical",
			ExtraFields: []FieldSpec{
				{Name: "chemical_name", Title: "Chemical Name", Kind: FieldFreeText},
				{Name: "pressure", Unit: "psi", Title: "Pressure"},
			},
			DeviceOptions:             []string{"Line Valve"},
			IsolationMethodOptions:    []string{"Close valve"},
			VerificationMethodOptions: []string{"Gauge reading"},
		},
		{
			TypeName: "Pneumatic",
			ExtraFields: []FieldSpec{
				{Name: "pressure", Unit: "psi", Title: "Pressure"},
			},
			DeviceOptions:             []string{"Air Valve"},
			IsolationMethodOptions:    []string{"Close valve"},
			VerificationMethodOptions: []string{"Gauge reading"},
		},
	})
}

func TestRecordManagerAdd(t *testing.T) {
	validity := NewValidityMap()
	m := NewRecordManager(testCatalog(), validity, 0)

	rec, err := m.Add("Electric")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rec.Index != 0 {
		t.Errorf("first record index = %d, want 0", rec.Index)
	}
	if !validity.Valid(rec.FieldID("volts")) {
		t.Error("volts field should start valid")
	}
	// extra field plus two photo slots
	if validity.Len() != 3 {
		t.Errorf("tracked fields = %d, want 3", validity.Len())
	}
}

func TestRecordManagerAddDefaultsToFirstType(t *testing.T) {
	m := NewRecordManager(testCatalog(), NewValidityMap(), 0)
	rec, err := m.Add("")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rec.EnergyType != "Electric" {
		t.Errorf("default energy type = %q, want Electric", rec.EnergyType)
	}
}

func TestRecordManagerAddErrors(t *testing.T) {
	m := NewRecordManager(testCatalog(), NewValidityMap(), 0)
	if _, err := m.Add("Plasma"); !errors.Is(err, ErrUnknownEnergyType) {
		t.Errorf("unknown type err = %v, want ErrUnknownEnergyType", err)
	}

	empty := NewRecordManager(NewCatalog(nil), NewValidityMap(), 0)
	if _, err := empty.Add(""); !errors.Is(err, ErrCatalogNotLoaded) {
		t.Errorf("unloaded catalog err = %v, want ErrCatalogNotLoaded", err)
	}
}

func TestRecordManagerMaxSources(t *testing.T) {
	m := NewRecordManager(testCatalog(), NewValidityMap(), 2)
	for i := 0; i < 2; i++ {
		if _, err := m.Add("Electric"); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}
	if _, err := m.Add("Electric"); !errors.Is(err, ErrMaxSources) {
		t.Errorf("over-cap err = %v, want ErrMaxSources", err)
	}
	if m.Count() != 2 {
		t.Errorf("count after rejected add = %d, want 2", m.Count())
	}
}

func TestRemoveLastUnpopulatedSkipsConfirm(t *testing.T) {
	validity := NewValidityMap()
	m := NewRecordManager(testCatalog(), validity, 0)
	m.Add("Electric")

	asked := false
	removed := m.RemoveLast(func(string) bool {
		asked = true
		return false
	})
	if !removed {
		t.Fatal("unpopulated record should be removed without confirmation")
	}
	if asked {
		t.Error("confirm must not be consulted for an unpopulated record")
	}
	if validity.Len() != 0 {
		t.Errorf("validity entries remain after removal: %d", validity.Len())
	}
}

func TestRemoveLastDeclinedIsNoOp(t *testing.T) {
	validity := NewValidityMap()
	m := NewRecordManager(testCatalog(), validity, 0)
	rec, _ := m.Add("Electric")
	rec.SetExtra("volts", "480")
	before := validity.Len()

	removed := m.RemoveLast(func(prompt string) bool {
		if prompt != "The last source contains data. Remove anyway?" {
			t.Errorf("unexpected prompt: %q", prompt)
		}
		return false
	})
	if removed {
		t.Fatal("declined removal must not remove the record")
	}
	if m.Count() != 1 {
		t.Errorf("count = %d, want 1", m.Count())
	}
	if validity.Len() != before {
		t.Errorf("validity entries changed on declined removal")
	}
	if rec.ExtraValues["volts"] != "480" {
		t.Error("record data must survive a declined removal")
	}
}

func TestRemoveLastConfirmedRemovesInvalidField(t *testing.T) {
	validity := NewValidityMap()
	m := NewRecordManager(testCatalog(), validity, 0)
	rec, _ := m.Add("Electric")
	rec.SetExtra("volts", "12a")
	validity.Set(rec.FieldID("volts"), false)
	if validity.AllValid() {
		t.Fatal("setup: aggregate should be blocked")
	}

	if !m.RemoveLast(func(string) bool { return true }) {
		t.Fatal("confirmed removal should proceed")
	}
	if !validity.AllValid() {
		t.Error("removing the record must release its invalid field")
	}
}

func TestIndexNotReusedAfterRemoval(t *testing.T) {
	m := NewRecordManager(testCatalog(), NewValidityMap(), 0)
	m.Add("Electric")
	second, _ := m.Add("Electric")
	m.RemoveLast(nil)
	third, _ := m.Add("Electric")
	if third.Index == second.Index {
		t.Errorf("index %d reused within a session", third.Index)
	}
}

func TestChangeEnergyTypeClearsDependentFields(t *testing.T) {
	validity := NewValidityMap()
	m := NewRecordManager(testCatalog(), validity, 0)
	rec, _ := m.Add("Electric")
	rec.SetExtra("volts", "480")
	rec.Device = CatalogChoice("Main Disconnect")
	rec.IsolationMethod = CustomChoice("padlock plus tag")
	rec.Tag = "TAG-7"
	rec.Description = "east panel"

	if err := m.ChangeEnergyType(rec, "Chemical"); err != nil {
		t.Fatalf("ChangeEnergyType: %v", err)
	}

	if rec.EnergyType != "Chemical" {
		t.Errorf("energy type = %q, want Chemical", rec.EnergyType)
	}
	if len(rec.ExtraValues) != 0 {
		t.Errorf("extra values must be cleared, got %v", rec.ExtraValues)
	}
	if !rec.Device.IsEmpty() || !rec.IsolationMethod.IsEmpty() {
		t.Error("selections and custom overrides must be cleared")
	}
	if rec.Tag != "TAG-7" || rec.Description != "east panel" {
		t.Error("tag and description are not type-dependent and must survive")
	}
	if !validity.Valid(rec.FieldID("chemical_name")) || !validity.Valid(rec.FieldID("pressure")) {
		t.Error("new type's fields should be tracked and valid")
	}
}

func TestChangeEnergyTypeUnknownLeavesRecordUntouched(t *testing.T) {
	m := NewRecordManager(testCatalog(), NewValidityMap(), 0)
	rec, _ := m.Add("Electric")
	rec.SetExtra("volts", "480")

	if err := m.ChangeEnergyType(rec, "Plasma"); !errors.Is(err, ErrUnknownEnergyType) {
		t.Fatalf("err = %v, want ErrUnknownEnergyType", err)
	}
	if rec.EnergyType != "Electric" || rec.ExtraValues["volts"] != "480" {
		t.Error("failed change must leave the record untouched")
	}
}

func TestChangeEnergyTypeSameFieldNameNotCarried(t *testing.T) {
	m := NewRecordManager(testCatalog(), NewValidityMap(), 0)
	rec, _ := m.Add("Chemical")
	rec.SetExtra("pressure", "90")

	if err := m.ChangeEnergyType(rec, "Pneumatic"); err != nil {
		t.Fatalf("ChangeEnergyType: %v", err)
	}
	if v := rec.ExtraValues["pressure"]; v != "" {
		t.Errorf("pressure carried across types: %q", v)
	}
}
