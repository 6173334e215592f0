// ABOUTME: Tests for the infra health report in Markdown and HTML.
// ABOUTME: Builds reports from the detection and auto-fix results of real caches.
package report_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/2389-research/infracache/autofix"
	"github.com/2389-research/infracache/cache/cachetest"
	"github.com/2389-research/infracache/detect"
	"github.com/2389-research/infracache/report"
	"github.com/2389-research/infracache/schema"
)

func brokenReport(t *testing.T) *report.Report {
	t.Helper()
	c := cachetest.SmallInfraCache(t)
	if err := c.ApplyDelete(schema.NewObjectRef(schema.BufferStop, "BF3")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	errs := detect.GenerateErrors(c)
	fixes, err := autofix.NewEngine(autofix.WithIDGenerator(func() string { return "new_stop" })).Run(c.Clone())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return &report.Report{
		InfraID: "01HZX",
		Name:    "small",
		Version: 3,
		Counts:  c.Counts(),
		Errors:  errs,
		Fixes:   fixes,
	}
}

func TestMarkdown_Sections(t *testing.T) {
	md := report.Markdown(brokenReport(t))

	for _, want := range []string{
		"# Infra small",
		"> id `01HZX`, version 3",
		"| TrackSection | 4 |",
		"### Route",
		"- **error** `R2` on `exit_point`: invalid_reference (references `BufferStop:BF3`)",
		"### TrackSection",
		"missing_buffer_stop (at END)",
		"- DELETE `Route:R2`",
		"- CREATE `BufferStop:new_stop` on track `D` at 500",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "| BufferStop | 3 |") {
		t.Error("deleted buffer stop still counted")
	}
}

func TestMarkdown_Deterministic(t *testing.T) {
	r := brokenReport(t)
	if report.Markdown(r) != report.Markdown(r) {
		t.Error("two renderings differ")
	}
}

func TestMarkdown_FixFailure(t *testing.T) {
	md := report.Markdown(&report.Report{InfraID: "x", FixErr: errors.New("boom")})
	if !strings.Contains(md, "# Infra x") {
		t.Errorf("title should fall back to the id:\n%s", md)
	}
	if !strings.Contains(md, "Auto-fix failed: boom") {
		t.Errorf("missing failure line:\n%s", md)
	}
	if !strings.Contains(md, "0 errors, 0 warnings.") {
		t.Errorf("missing summary:\n%s", md)
	}
}

func TestMarkdown_CleanInfra(t *testing.T) {
	c := cachetest.SmallInfraCache(t)
	md := report.Markdown(&report.Report{InfraID: "x", Counts: c.Counts(), Errors: detect.GenerateErrors(c)})
	if !strings.Contains(md, "0 errors, 1 warnings.") {
		t.Errorf("missing summary:\n%s", md)
	}
	if !strings.Contains(md, "Nothing to fix.") {
		t.Errorf("missing empty fix line:\n%s", md)
	}
}

func TestHTML(t *testing.T) {
	html, err := report.HTML(brokenReport(t))
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	for _, want := range []string{"<h1>Infra small</h1>", "<table>", "<td>TrackSection</td>", "<code>Route:R2</code>"} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q:\n%s", want, html)
		}
	}
}
