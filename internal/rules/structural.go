package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/nao1215/telecheck/internal/model"
)

// TransportMatcher reports pages served over plain HTTP.
type TransportMatcher struct{}

// Match implements Matcher.
func (TransportMatcher) Match(target Target) ([]Match, error) {
	if !strings.HasPrefix(strings.ToLower(target.Page.URL), "http://") {
		return nil, nil
	}
	return []Match{target.newMatch(target.Page.URL, "page served over http: "+target.Page.URL, "url")}, nil
}

// FormActionMatcher reports forms that submit over plain HTTP.
type FormActionMatcher struct{}

// Match implements Matcher.
func (FormActionMatcher) Match(target Target) ([]Match, error) {
	var matches []Match
	for i, form := range target.Page.Forms {
		if !strings.HasPrefix(strings.ToLower(form.Action), "http://") {
			continue
		}
		matches = append(matches, target.newMatch(
			form.Action,
			fmt.Sprintf("form %d submits to %s", i, form.Action),
			fmt.Sprintf("form[%d].action", i),
		))
	}
	return matches, nil
}

// FormMethodMatcher reports forms that collect fields matching FieldPattern
// without using POST, which puts the values in URLs and server logs.
type FormMethodMatcher struct {
	FieldPattern *regexp.Regexp
}

// Match implements Matcher.
func (m *FormMethodMatcher) Match(target Target) ([]Match, error) {
	var matches []Match
	for i, form := range target.Page.Forms {
		if strings.EqualFold(form.Method, "POST") {
			continue
		}
		field, ok := m.healthField(form)
		if !ok {
			continue
		}
		matches = append(matches, target.newMatch(
			field,
			fmt.Sprintf("form %d collects %q using %s", i, field, form.Method),
			fmt.Sprintf("form[%d].method", i),
		))
	}
	return matches, nil
}

func (m *FormMethodMatcher) healthField(form model.Form) (string, bool) {
	for _, f := range form.Fields {
		if f.Type == "hidden" || f.Type == "submit" {
			continue
		}
		for _, candidate := range []string{f.Name, f.ID, f.Placeholder} {
			if candidate != "" && m.FieldPattern.MatchString(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

// HeaderCheck inspects one response header. Check returns the offending
// value and true when the header is a problem.
type HeaderCheck struct {
	Header string
	Check  func(value string, page *model.PageRecord) (string, bool)
}

// HeaderMatcher runs header checks on a page.
type HeaderMatcher struct {
	Checks []HeaderCheck
}

// Match implements Matcher.
func (m *HeaderMatcher) Match(target Target) ([]Match, error) {
	if target.Page.Headers == nil {
		return nil, nil
	}
	var matches []Match
	for _, hc := range m.Checks {
		value := target.Page.GetHeader(hc.Header)
		offending, ok := hc.Check(value, target.Page)
		if !ok {
			continue
		}
		excerpt := hc.Header + ": " + offending
		if offending == "" {
			excerpt = hc.Header + " header missing"
		}
		matches = append(matches, target.newMatch(offending, excerpt, "header:"+hc.Header))
	}
	return matches, nil
}

// ImageMetadataMatcher reports images whose EXIF metadata identifies a
// person or place. Tags maps EXIF tag names to the severity they carry;
// one finding per image uses the highest.
type ImageMetadataMatcher struct {
	Tags map[string]model.Severity
}

// Match implements Matcher.
func (m *ImageMetadataMatcher) Match(target Target) ([]Match, error) {
	var matches []Match
	for i, img := range target.Page.Images {
		if len(img.Metadata) == 0 {
			continue
		}
		var found []string
		severity := model.SeverityInfo
		for tag := range img.Metadata {
			s, ok := m.Tags[tag]
			if !ok {
				continue
			}
			found = append(found, tag)
			severity = max(severity, s)
		}
		if len(found) == 0 {
			continue
		}
		sort.Strings(found)

		details := make([]string, 0, len(found))
		for _, tag := range found {
			details = append(details, tag+"="+img.Metadata[tag])
		}
		match := target.newMatch(
			strings.Join(found, ","),
			img.Src+" ("+strings.Join(details, ", ")+")",
			fmt.Sprintf("img[%d].exif", i),
		)
		match.Severity = severity
		matches = append(matches, match)
	}
	return matches, nil
}
