package compare

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFieldSetDefaults(t *testing.T) {
	if got := AllFields.Names(); !cmp.Equal(got, []string{"status", "stdout", "stderr"}) {
		t.Errorf("AllFields = %v", got)
	}
	if got := WithoutStderr.Names(); !cmp.Equal(got, []string{"status", "stdout"}) {
		t.Errorf("WithoutStderr = %v", got)
	}
	if WithoutStderr.Has(Stderr) {
		t.Error("WithoutStderr contains stderr")
	}
}

func TestParseFieldSet(t *testing.T) {
	tests := []struct {
		in      []string
		want    FieldSet
		wantErr bool
	}{
		{in: []string{"status", "stdout", "stderr"}, want: AllFields},
		{in: []string{"stdout", "status"}, want: WithoutStderr},
		{in: []string{"STDERR"}, want: NewFieldSet(Stderr)},
		{in: []string{"exit_status", "stdout"}, want: WithoutStderr},
		{in: nil, wantErr: true},
		{in: []string{"stdin"}, wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFieldSet(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseFieldSet(%v) = %v, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFieldSet(%v): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFieldSet(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFieldSetText(t *testing.T) {
	text, err := WithoutStderr.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != "status,stdout" {
		t.Errorf("MarshalText = %q", text)
	}

	var s FieldSet
	if err := s.UnmarshalText([]byte("stderr,status")); err != nil {
		t.Fatal(err)
	}
	if s != NewFieldSet(ExitStatus, Stderr) {
		t.Errorf("UnmarshalText = %v", s)
	}
	if err := s.UnmarshalText([]byte("")); err == nil {
		t.Error("UnmarshalText(\"\") succeeded, want error")
	}
}

func TestFieldSetValidate(t *testing.T) {
	if err := FieldSet(0).Validate(); err == nil {
		t.Error("empty set validated")
	}
	if err := FieldSet(0x10).Validate(); err == nil {
		t.Error("unknown bit validated")
	}
	if err := AllFields.Validate(); err != nil {
		t.Errorf("AllFields: %v", err)
	}
}
