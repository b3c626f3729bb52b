package memory

import (
	"context"
	"errors"
	"testing"

	ports "moneta/internal/sheets"
)

func TestExporterStoresRows(t *testing.T) {
	e := New()
	ref, err := e.Export(context.Background(), ports.ExportRow{Action: "created"})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected ref %q (err=%v)", ref, err)
	}
	if len(e.Rows()) != 1 {
		t.Fatalf("expected 1 row")
	}

	e.FailWith(errors.New("quota"))
	if _, err := e.Export(context.Background(), ports.ExportRow{}); err == nil {
		t.Fatalf("expected configured failure")
	}
}
