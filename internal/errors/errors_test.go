package errors

import (
	"fmt"
	"testing"
	"time"
)

func TestFastPathNoTelemetry(t *testing.T) {
	t.Parallel()

	SetTelemetryReporter(nil)

	err := fmt.Errorf("test error")
	ee := New(err).Build()

	if ee.Err.Error() != "test error" {
		t.Errorf("Expected error message 'test error', got '%s'", ee.Err.Error())
	}

	if ee.GetComponent() != "unknown" {
		t.Errorf("Expected component 'unknown' in fast path, got '%s'", ee.GetComponent())
	}

	if ee.Category != CategoryGeneric {
		t.Errorf("Expected category 'generic' in fast path, got '%s'", ee.Category)
	}
}

func TestBuilderKeepsExplicitFields(t *testing.T) {
	t.Parallel()

	ee := Newf("row %d has no parsable geometry", 7).
		Component("transformer").
		Category(CategoryGeometryParse).
		Context("source_label", "trafos.csv").
		Build()

	if ee.GetComponent() != "transformer" {
		t.Errorf("Expected component 'transformer', got '%s'", ee.GetComponent())
	}
	if ee.Category != CategoryGeometryParse {
		t.Errorf("Expected category '%s', got '%s'", CategoryGeometryParse, ee.Category)
	}
	ctx := ee.GetContext()
	if ctx["source_label"] != "trafos.csv" {
		t.Errorf("Expected context source_label 'trafos.csv', got %v", ctx["source_label"])
	}
}

func TestContextCopyIsDetached(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("boom")).Context("k", "v").Build()
	ctx := ee.GetContext()
	ctx["k"] = "mutated"

	if ee.GetContext()["k"] != "v" {
		t.Error("GetContext must return a copy, not the internal map")
	}
}

func TestTableContext(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("bad cell")).TableContext("capacidad_2024.csv", 12).Build()
	ctx := ee.GetContext()

	if ctx["source_label"] != "capacidad_2024.csv" {
		t.Errorf("Expected source_label in context, got %v", ctx["source_label"])
	}
	if ctx["row"] != 12 {
		t.Errorf("Expected row 12 in context, got %v", ctx["row"])
	}
}

func TestIsCategory(t *testing.T) {
	t.Parallel()

	base := New(NewStd("missing column Coordenada UTM X")).Category(CategoryMissingColumn).Build()
	wrapped := fmt.Errorf("table rejected: %w", base)

	if !IsCategory(wrapped, CategoryMissingColumn) {
		t.Error("IsCategory should match through wrapping")
	}
	if IsCategory(wrapped, CategoryDatabase) {
		t.Error("IsCategory matched the wrong category")
	}
}

func TestIsMatchesByCategory(t *testing.T) {
	t.Parallel()

	a := New(NewStd("first")).Category(CategoryInvalidCoordinate).Build()
	b := New(NewStd("second")).Category(CategoryInvalidCoordinate).Build()

	if !Is(a, b) {
		t.Error("Enhanced errors with the same category should satisfy Is")
	}
}

func TestInvalidPriorityFallsBack(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("x")).Priority("urgent!!").Build()
	if ee.GetPriority() != PriorityMedium {
		t.Errorf("Expected fallback priority '%s', got '%s'", PriorityMedium, ee.GetPriority())
	}

	ee = New(NewStd("x")).Priority(PriorityCritical).Build()
	if ee.GetPriority() != PriorityCritical {
		t.Errorf("Expected priority '%s', got '%s'", PriorityCritical, ee.GetPriority())
	}
}

type stubReporter struct {
	enabled  bool
	received []*EnhancedError
}

func (s *stubReporter) ReportError(ee *EnhancedError) { s.received = append(s.received, ee) }
func (s *stubReporter) IsEnabled() bool               { return s.enabled }

func TestReporterReceivesBuiltErrors(t *testing.T) {
	// Mutates package-level reporter state, so no t.Parallel here
	reporter := &stubReporter{enabled: true}
	SetTelemetryReporter(reporter)
	defer SetTelemetryReporter(nil)

	New(NewStd("dataset fetch failed")).Category(CategoryDatasetLoad).Build()

	if len(reporter.received) != 1 {
		t.Fatalf("Expected 1 reported error, got %d", len(reporter.received))
	}
	if reporter.received[0].Category != CategoryDatasetLoad {
		t.Errorf("Reporter received wrong category: %s", reporter.received[0].Category)
	}
}

func TestMarkReported(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("x")).Build()
	if ee.IsReported() {
		t.Error("new error should not be marked reported")
	}
	ee.MarkReported()
	if !ee.IsReported() {
		t.Error("MarkReported should stick")
	}
}

func TestNetworkContextAnonymizesURL(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("connect refused")).
		Category(CategoryNetwork).
		NetworkContext("https://example.com/subestaciones.geojson", 5*time.Second).
		Build()
	ctx := ee.GetContext()

	if ctx["url_category"] != "https-endpoint" {
		t.Errorf("Expected url_category 'https-endpoint', got %v", ctx["url_category"])
	}
	if ctx["timeout_seconds"] != 5.0 {
		t.Errorf("Expected timeout_seconds 5, got %v", ctx["timeout_seconds"])
	}
}
