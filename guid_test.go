package comhost

import "testing"

func TestParseGUID(t *testing.T) {
	want := "{DA39A3EE-5E6B-5B0D-B255-BFEF95601890}"

	tests := []struct {
		name  string
		input string
	}{
		{"braced upper", "{DA39A3EE-5E6B-5B0D-B255-BFEF95601890}"},
		{"braced lower", "{da39a3ee-5e6b-5b0d-b255-bfef95601890}"},
		{"plain", "DA39A3EE-5E6B-5B0D-B255-BFEF95601890"},
		{"plain lower", "da39a3ee-5e6b-5b0d-b255-bfef95601890"},
		{"mixed case", "{Da39A3eE-5e6B-5b0D-b255-BfEf95601890}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ParseGUID(tt.input)
			if err != nil {
				t.Fatalf("ParseGUID(%q) failed: %v", tt.input, err)
			}
			if got := g.String(); got != want {
				t.Errorf("String() = %q, want %q", got, want)
			}
		})
	}
}

func TestParseGUID_Invalid(t *testing.T) {
	tests := []string{
		"",
		"not-a-guid",
		"{DA39A3EE-5E6B-5B0D-B255}",
		"{DA39A3EE-5E6B-5B0D-B255-BFEF95601890",
		"{GGGGGGGG-5E6B-5B0D-B255-BFEF95601890}",
	}

	for _, input := range tests {
		if _, err := ParseGUID(input); err == nil {
			t.Errorf("ParseGUID(%q) should fail", input)
		}
	}
}

func TestGUID_Equality(t *testing.T) {
	a := MustGUID("{11111111-2222-3333-4444-555555555555}")
	b := MustGUID("11111111-2222-3333-4444-555555555555")
	c := MustGUID("{11111111-2222-3333-4444-555555555556}")

	if a != b {
		t.Error("same GUID in different notations should compare equal")
	}
	if a == c {
		t.Error("different GUIDs should not compare equal")
	}
}

func TestGUID_IsZero(t *testing.T) {
	var zero GUID
	if !zero.IsZero() {
		t.Error("zero value should report IsZero")
	}
	if IID_IUnknown.IsZero() {
		t.Error("IID_IUnknown should not report IsZero")
	}
}

func TestWellKnownIIDs(t *testing.T) {
	tests := []struct {
		iid  IID
		want string
	}{
		{IID_IUnknown, "{00000000-0000-0000-C000-000000000046}"},
		{IID_IClassFactory, "{00000001-0000-0000-C000-000000000046}"},
		{IID_IDispatch, "{00020400-0000-0000-C000-000000000046}"},
	}

	for _, tt := range tests {
		if got := tt.iid.String(); got != tt.want {
			t.Errorf("iid = %q, want %q", got, tt.want)
		}
	}
}
