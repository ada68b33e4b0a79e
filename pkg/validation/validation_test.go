package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigValidator_CollectsAllErrors(t *testing.T) {
	cv := NewConfigValidator("Config").
		Required("Name", "").
		MinInt("Workers", 0, 1).
		RangeInt("Factor", 99, 1, 10).
		OneOf("Format", "xml", []string{"text", "json"})

	if got := len(cv.Errors()); got != 4 {
		t.Fatalf("expected 4 errors, got %d: %v", got, cv.Errors())
	}
	err := cv.Validate()
	for _, want := range []string{"Config.Name", "Config.Workers", "Config.Factor", `"xml"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error %q does not mention %s", err, want)
		}
	}
}

func TestConfigValidator_Valid(t *testing.T) {
	cv := NewConfigValidator("Config").
		Required("Name", "x").
		MinInt("Workers", 1, 1).
		RangeInt("Factor", 10, 1, 10).
		OneOf("Format", "json", []string{"text", "json"})

	if cv.HasErrors() {
		t.Errorf("unexpected errors: %v", cv.Errors())
	}
	if err := cv.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestConfigValidator_CustomAndWhen(t *testing.T) {
	sentinel := errors.New("boom")

	cv := NewConfigValidator("Config").
		Custom("Check", func() error { return sentinel }).
		When(false, func(cv *ConfigValidator) { cv.Required("Skipped", "") }).
		When(true, func(cv *ConfigValidator) { cv.Required("Applied", "") })

	err := cv.Validate()
	if !errors.Is(err, sentinel) {
		t.Errorf("Custom error not wrapped: %v", err)
	}
	if strings.Contains(err.Error(), "Skipped") || !strings.Contains(err.Error(), "Applied") {
		t.Errorf("When applied the wrong branch: %v", err)
	}
}

type sample struct {
	Name  string   `validate:"required"`
	Level string   `validate:"oneof=debug info"`
	Count int      `validate:"min=1,max=3"`
	Tags  []string `validate:"dive,required"`
}

func TestStruct(t *testing.T) {
	if err := Struct(sample{Name: "n", Level: "info", Count: 2}); err != nil {
		t.Fatalf("valid struct rejected: %v", err)
	}

	err := Struct(sample{Level: "trace", Count: 5, Tags: []string{""}})
	if err == nil {
		t.Fatal("invalid struct accepted")
	}
	for _, want := range []string{
		"sample.Name: field is required",
		"sample.Level: trace is not one of [debug info]",
		"sample.Count: must not exceed 3",
		"sample.Tags[0]: field is required",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not contain %q", err, want)
		}
	}

	if err := Struct(nil); err == nil {
		t.Error("nil accepted")
	}
}
