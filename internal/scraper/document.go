package scraper

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
)

// ParseDocument extracts the normalized decision metadata from one uitspraak
// content document. The feed mixes Dublin Core (dcterms:*), rechtspraak's
// own schema (rs:*) and psi:* elements inside an RDF envelope.
//
// Only a malformed document is an error. Individual fields that are missing
// or unparseable become nil/zero so one bad element never sinks the record.
func ParseDocument(body []byte) (*Decision, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse uitspraak xml: %w", err)
	}

	d := &Decision{
		ECLI:            firstText(doc, "//dcterms:identifier", "//rs:ecli"),
		DecisionDate:    parseDate(firstText(doc, "//dcterms:date", "//rs:datum")),
		PublicationDate: parseDate(firstText(doc, "//dcterms:issued")),
		ProcedureType:   optionalText(doc, "//dcterms:type", "//psi:procedure"),
		SubjectArea:     optionalText(doc, "//dcterms:subject"),
		CaseNumber:      optionalText(doc, "//psi:zaaknummer"),
	}

	d.Court = firstText(doc, "//dcterms:creator")
	if d.Court == "" {
		d.Court = "Unknown"
	}
	d.CourtType = CourtType(d.Court)

	if summary := xmlquery.FindOne(doc, "//rs:inhoudsindicatie"); summary != nil {
		if text := strings.TrimSpace(summary.InnerText()); text != "" {
			d.Summary = &text
		}
	}

	for _, rel := range xmlquery.Find(doc, "//dcterms:relation") {
		ref := rel.SelectAttr("rdf:resource")
		if strings.HasPrefix(ref, "ECLI:") {
			d.RelatedECLIs = append(d.RelatedECLIs, ref)
		}
	}

	return d, nil
}

// firstText returns the trimmed text of the first expression that matches a
// non-empty element, or "".
func firstText(doc *xmlquery.Node, exprs ...string) string {
	for _, expr := range exprs {
		if node := xmlquery.FindOne(doc, expr); node != nil {
			if text := strings.TrimSpace(node.InnerText()); text != "" {
				return text
			}
		}
	}
	return ""
}

func optionalText(doc *xmlquery.Node, exprs ...string) *string {
	if text := firstText(doc, exprs...); text != "" {
		return &text
	}
	return nil
}

// parseDate converts a source date string to a day-precision UTC timestamp.
// Bad dates are nil, never an error (spec: null beats failing the record).
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	if ts := parseTimestamp(s); ts != nil {
		day := ts.Truncate(24 * time.Hour)
		return &day
	}
	// Some records carry a timestamp with a non-standard suffix; the first
	// ten characters are still a usable date.
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// CourtType maps a court name onto the low-cardinality court type code used
// for grouping queries.
func CourtType(courtName string) string {
	name := strings.ToLower(courtName)
	switch {
	case strings.Contains(name, "hoge raad"):
		return "HR"
	case strings.Contains(name, "gerechtshof"):
		return "HOF"
	case strings.Contains(name, "rechtbank"):
		return "RB"
	case strings.Contains(name, "raad van state"):
		return "RVS"
	case strings.Contains(name, "centrale raad van beroep"):
		return "CRVB"
	case strings.Contains(name, "college van beroep"):
		return "CBB"
	case strings.Contains(name, "raad voor de rechtspraak"):
		return "RVR"
	default:
		return "OTHER"
	}
}
