package loto

import "testing"

func TestValidateNumeric(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		valid   bool
		message string
	}{
		{"empty is valid", "", true, ""},
		{"digits", "1200", true, ""},
		{"single digit", "7", true, ""},
		{"letters rejected", "abc", false, "must only be a number"},
		{"mixed rejected", "12a", false, "must only be a number"},
		{"decimal rejected", "1.5", false, "must only be a number"},
		{"negative rejected", "-3", false, "must only be a number"},
		{"space rejected", "1 200", false, "must only be a number"},
		{"comma rejected", "1,200", false, "must only be a number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateNumeric(tt.value)
			if res.Valid != tt.valid {
				t.Errorf("ValidateNumeric(%q).Valid = %v, want %v", tt.value, res.Valid, tt.valid)
			}
			if !tt.valid && res.Message != tt.message {
				t.Errorf("ValidateNumeric(%q).Message = %q, want %q", tt.value, res.Message, tt.message)
			}
		})
	}
}

func TestValidateImage(t *testing.T) {
	tests := []struct {
		name  string
		file  *ImageMeta
		valid bool
	}{
		{"nil clears selection", nil, true},
		{"jpeg ok", &ImageMeta{Name: "machine.jpg", MIMEType: "image/jpeg"}, true},
		{"png ok", &ImageMeta{Name: "panel.png", MIMEType: "image/png"}, true},
		{"uppercase extension ok", &ImageMeta{Name: "PHOTO.JPG", MIMEType: "image/jpeg"}, true},
		{"gif mime rejected", &ImageMeta{Name: "anim.gif", MIMEType: "image/gif"}, false},
		{"good mime bad extension rejected", &ImageMeta{Name: "scan.pdf", MIMEType: "image/png"}, false},
		{"good extension bad mime rejected", &ImageMeta{Name: "fake.png", MIMEType: "application/pdf"}, false},
		{"no extension rejected", &ImageMeta{Name: "README", MIMEType: "image/png"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateImage(tt.file)
			if res.Valid != tt.valid {
				t.Errorf("ValidateImage(%+v).Valid = %v, want %v", tt.file, res.Valid, tt.valid)
			}
		})
	}
}

func TestValidateImageMessage(t *testing.T) {
	res := ValidateImage(&ImageMeta{Name: "doc.pdf", MIMEType: "application/pdf"})
	if res.Valid {
		t.Fatal("expected pdf to be rejected")
	}
	if res.Message != "pdf not supported. Only jpg, jpeg, png" {
		t.Errorf("unexpected message: %q", res.Message)
	}

	res = ValidateImage(&ImageMeta{Name: "noext", MIMEType: "application/octet-stream"})
	if res.Message != "File not supported. Only jpg, jpeg, png" {
		t.Errorf("unexpected message for extensionless file: %q", res.Message)
	}
}

func TestValidityMapAggregate(t *testing.T) {
	m := NewValidityMap()
	if !m.AllValid() {
		t.Error("empty map should be all valid")
	}

	m.Register("procedure_number")
	m.Register("volts_0")
	if !m.AllValid() {
		t.Error("registered fields start valid")
	}

	m.Set("volts_0", false)
	if m.AllValid() {
		t.Error("one invalid field must block the aggregate")
	}

	m.Set("volts_0", true)
	if !m.AllValid() {
		t.Error("aggregate should recover once the field is fixed")
	}

	m.Set("volts_0", false)
	m.Remove("volts_0")
	if !m.AllValid() {
		t.Error("removing an invalid field must release the aggregate")
	}
}
