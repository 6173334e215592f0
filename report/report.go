// ABOUTME: Renders the health of one infrastructure (object counts, integrity errors, suggested fixes) as Markdown.
// ABOUTME: HTML output goes through goldmark with the table extension.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389-research/infracache/detect"
	"github.com/2389-research/infracache/schema"
)

// Report is everything known about the health of an infrastructure.
type Report struct {
	InfraID string
	Name    string
	Version int64
	Counts  map[schema.ObjectType]int
	Errors  []detect.InfraError
	Fixes   []schema.Operation
	// FixErr is set when the auto-fix run failed; Fixes is then empty.
	FixErr error
}

// Markdown renders r deterministically. Object types follow
// schema.AllObjectTypes order and errors keep their detection order.
func Markdown(r *Report) string {
	var out strings.Builder

	title := r.Name
	if title == "" {
		title = r.InfraID
	}
	fmt.Fprintf(&out, "# Infra %s\n", title)
	fmt.Fprintln(&out)
	fmt.Fprintf(&out, "> id `%s`, version %d\n", r.InfraID, r.Version)

	fmt.Fprintln(&out)
	fmt.Fprintln(&out, "## Objects")
	fmt.Fprintln(&out)
	fmt.Fprintln(&out, "| Type | Count |")
	fmt.Fprintln(&out, "| --- | ---: |")
	for _, t := range schema.AllObjectTypes {
		if n := r.Counts[t]; n > 0 {
			fmt.Fprintf(&out, "| %s | %d |\n", t, n)
		}
	}

	errs, warnings := 0, 0
	byType := make(map[schema.ObjectType][]detect.InfraError)
	for _, e := range r.Errors {
		if e.IsWarning {
			warnings++
		} else {
			errs++
		}
		byType[e.ObjRef.Type] = append(byType[e.ObjRef.Type], e)
	}

	fmt.Fprintln(&out)
	fmt.Fprintln(&out, "## Integrity")
	fmt.Fprintln(&out)
	fmt.Fprintf(&out, "%d errors, %d warnings.\n", errs, warnings)
	for _, t := range schema.AllObjectTypes {
		list := byType[t]
		if len(list) == 0 {
			continue
		}
		fmt.Fprintln(&out)
		fmt.Fprintf(&out, "### %s\n", t)
		fmt.Fprintln(&out)
		for _, e := range list {
			writeError(&out, e)
		}
	}

	fmt.Fprintln(&out)
	fmt.Fprintln(&out, "## Suggested fixes")
	fmt.Fprintln(&out)
	switch {
	case r.FixErr != nil:
		fmt.Fprintf(&out, "Auto-fix failed: %s\n", r.FixErr)
	case len(r.Fixes) == 0:
		fmt.Fprintln(&out, "Nothing to fix.")
	default:
		for _, op := range r.Fixes {
			writeFix(&out, op)
		}
	}

	return out.String()
}

func writeError(out *strings.Builder, e detect.InfraError) {
	severity := "error"
	if e.IsWarning {
		severity = "warning"
	}
	fmt.Fprintf(out, "- **%s** `%s`", severity, e.ObjRef.ID)
	if e.Field != "" {
		fmt.Fprintf(out, " on `%s`", e.Field)
	}
	fmt.Fprintf(out, ": %s", e.SubType.ErrorType())
	if detail := describe(e.SubType); detail != "" {
		fmt.Fprintf(out, " (%s)", detail)
	}
	fmt.Fprintln(out)
}

func describe(sub detect.SubType) string {
	switch s := sub.(type) {
	case detect.InvalidReference:
		return fmt.Sprintf("references `%s`", s.Reference)
	case detect.OutOfRange:
		return fmt.Sprintf("%g outside [%g, %g]", s.Position, s.ExpectedRange[0], s.ExpectedRange[1])
	case detect.MissingBufferStop:
		return fmt.Sprintf("at %s", s.Endpoint)
	case detect.OverlappingSpeedSections:
		return fmt.Sprintf("overlaps `%s`", s.Reference)
	case detect.OverlappingElectrifications:
		return fmt.Sprintf("overlaps `%s`", s.Reference)
	case detect.ObjectOutOfPath:
		return fmt.Sprintf("`%s` is off the path", s.Reference)
	case detect.InvalidGroup:
		return fmt.Sprintf("group %s unknown to %s", s.Group, s.TrackNodeType)
	case detect.UnknownPortName:
		return fmt.Sprintf("port %s", s.PortName)
	}
	return ""
}

func writeFix(out *strings.Builder, op schema.Operation) {
	fmt.Fprintf(out, "- %s `%s`", op.Kind(), op.Ref())
	if create, ok := op.(schema.CreateOperation); ok {
		if bs, ok := create.Object.(*schema.BufferStopObject); ok {
			fmt.Fprintf(out, " on track `%s` at %g", bs.Track, bs.Position)
		}
	}
	fmt.Fprintln(out)
}

// HTML renders r as an HTML fragment.
func HTML(r *Report) (string, error) {
	var buf bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	if err := md.Convert([]byte(Markdown(r)), &buf); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}
