package skillscan

import (
	"bytes"
	"path/filepath"
	"sort"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"
	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/scan"
	"github.com/jingkaihe/agentkit/pkg/version"
)

// sarifLevel maps severities onto SARIF result levels.
func sarifLevel(sev scan.Severity) string {
	switch sev {
	case scan.SeverityCritical, scan.SeverityHigh:
		return "error"
	case scan.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

func sarifRuleID(f scan.Finding) string {
	if f.RuleID != "" {
		return f.RuleID
	}
	return strings.ToUpper(f.Analyzer) + "_FINDING"
}

// RenderSARIF returns a SARIF 2.1.0 log. File URIs are made relative to
// baseDir when possible.
func (r *Report) RenderSARIF(baseDir string) ([]byte, error) {
	log, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create SARIF report")
	}
	run := sarif.NewRun(*sarif.NewTool(sarif.NewVersionedDriver("agentkit", version.Version)))

	// rules are registered in id order so the driver's rule list is stable
	first := make(map[string]scan.Finding)
	for _, res := range r.Results {
		for _, f := range res.Findings {
			id := sarifRuleID(f)
			if _, ok := first[id]; !ok {
				first[id] = f
			}
		}
	}
	ids := make([]string, 0, len(first))
	for id := range first {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		f := first[id]
		run.AddRule(id).
			WithShortDescription(sarif.NewMultiformatMessageString(f.Title)).
			WithProperties(sarif.Properties{"category": f.Category})
	}

	for _, res := range r.Results {
		for _, f := range res.Findings {
			text := f.Title
			if f.Description != "" {
				text += ": " + f.Description
			}
			path := f.FilePath
			if path == "" {
				path = res.Path
			}

			physical := sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewSimpleArtifactLocation(relativeURI(baseDir, path)))
			if f.LineNumber > 0 {
				physical.WithRegion(sarif.NewRegion().WithStartLine(f.LineNumber))
			}

			props := sarif.NewPropertyBag()
			props.Add("severity", f.Severity)
			props.AddString("skill", res.SkillName)
			props.AddString("analyzer", f.Analyzer)

			result := run.CreateResultForRule(sarifRuleID(f)).
				WithLevel(sarifLevel(f.Severity)).
				WithMessage(sarif.NewTextMessage(text)).
				WithLocations([]*sarif.Location{sarif.NewLocationWithPhysicalLocation(physical)})
			result.AttachPropertyBag(props)
		}
	}

	log.AddRun(run)

	var buf bytes.Buffer
	if err := log.PrettyWrite(&buf); err != nil {
		return nil, errors.Wrap(err, "failed to encode SARIF report")
	}
	return buf.Bytes(), nil
}

func relativeURI(baseDir, path string) string {
	if baseDir != "" && filepath.IsAbs(path) {
		if rel, err := filepath.Rel(baseDir, path); err == nil && !strings.HasPrefix(rel, "..") {
			path = rel
		}
	}
	return filepath.ToSlash(path)
}
