// Package records defines the normalized record types produced by
// extraction and the validation that gates them before publication.
package records

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"radar-scraping/lib/textutil"
)

// Kind names a record family. The values double as the sink's endpoint
// segments.
type Kind string

const (
	KindCourse    Kind = "courses"
	KindComponent Kind = "components"
	KindStructure Kind = "structures"
)

var ErrInvalidRecord = errors.New("invalid record")

// codeRegex matches portal codes like MATA02 or ADM001.
var codeRegex = regexp.MustCompile(`^[A-Z]{2,6}\d{2,4}$`)

const (
	maxCredits  = 60
	maxWorkload = 2000
)

// Course is a degree program offered by an academic unit.
type Course struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Unit     string `json:"unit,omitempty"`
	Modality string `json:"modality,omitempty"`
	City     string `json:"city,omitempty"`
	Degree   string `json:"degree,omitempty"`
	Shift    string `json:"shift,omitempty"`
}

// Component is a curricular component (a subject), optionally enriched
// with text pulled from its syllabus document.
type Component struct {
	Code         string   `json:"code"`
	Name         string   `json:"name"`
	Kind         string   `json:"kind,omitempty"`
	Unit         string   `json:"unit,omitempty"`
	Credits      int      `json:"credits,omitempty"`
	Workload     int      `json:"workload,omitempty"`
	Prerequisite string   `json:"prerequisite,omitempty"`
	Syllabus     Syllabus `json:"syllabus,omitempty"`
}

// Syllabus carries the sections extracted from a component's syllabus
// pdf along with the extraction confidence.
type Syllabus struct {
	Objectives   string   `json:"objectives,omitempty"`
	Content      string   `json:"content,omitempty"`
	Methodology  string   `json:"methodology,omitempty"`
	Evaluation   string   `json:"evaluation,omitempty"`
	Bibliography []string `json:"bibliography,omitempty"`
	Confidence   float64  `json:"confidence,omitempty"`
}

// Structure is a curriculum structure binding a course to its
// component layout for a given catalog year.
type Structure struct {
	Code       string `json:"code"`
	CourseCode string `json:"course_code"`
	Year       string `json:"year,omitempty"`
	Status     string `json:"status,omitempty"`
	Shift      string `json:"shift,omitempty"`
}

// ValidCode reports whether a string has the shape of a portal code.
func ValidCode(code string) bool {
	return codeRegex.MatchString(code)
}

func field(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return textutil.Sanitize(s)
}

func intField(raw map[string]any, key string) (int, error) {
	v, ok := raw[key]
	if !ok {
		return 0, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	case string:
		var parsed int
		_, err := fmt.Sscanf(strings.TrimSpace(n), "%d", &parsed)
		if err != nil {
			return 0, fmt.Errorf("field %q is not numeric: %q", key, n)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("field %q has unexpected type %T", key, v)
	}
}

func requireFields(raw map[string]any, keys ...string) error {
	var missing []string
	for _, key := range keys {
		value := field(raw, key)
		if value == "" {
			missing = append(missing, key)
			continue
		}
		// The portal serves latin-1 pages now and then; a replacement
		// rune means the driver decoded them wrong.
		if strings.ContainsRune(value, '�') {
			return fmt.Errorf("%w: field %q has broken encoding", ErrInvalidRecord, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRecord, strings.Join(missing, ", "))
	}
	return nil
}

// ValidateCourse normalizes a raw extracted map into a Course.
func ValidateCourse(raw map[string]any) (Course, error) {
	if err := requireFields(raw, "code", "name"); err != nil {
		return Course{}, err
	}
	course := Course{
		Code:     strings.ToUpper(field(raw, "code")),
		Name:     field(raw, "name"),
		Unit:     field(raw, "unit"),
		Modality: field(raw, "modality"),
		City:     field(raw, "city"),
		Degree:   field(raw, "degree"),
		Shift:    field(raw, "shift"),
	}
	return course, nil
}

// ValidateComponent normalizes a raw extracted map into a Component.
// Codes must look like portal codes and credit/workload figures must be
// in sane ranges; anything else indicates a misparsed row.
func ValidateComponent(raw map[string]any) (Component, error) {
	if err := requireFields(raw, "code", "name"); err != nil {
		return Component{}, err
	}
	code := strings.ToUpper(field(raw, "code"))
	if !ValidCode(code) {
		return Component{}, fmt.Errorf("%w: malformed code %q", ErrInvalidRecord, code)
	}

	credits, err := intField(raw, "credits")
	if err != nil {
		return Component{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if credits < 0 || credits > maxCredits {
		return Component{}, fmt.Errorf("%w: credits %d out of range", ErrInvalidRecord, credits)
	}
	workload, err := intField(raw, "workload")
	if err != nil {
		return Component{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if workload < 0 || workload > maxWorkload {
		return Component{}, fmt.Errorf("%w: workload %d out of range", ErrInvalidRecord, workload)
	}

	comp := Component{
		Code:         code,
		Name:         field(raw, "name"),
		Kind:         field(raw, "kind"),
		Unit:         field(raw, "unit"),
		Credits:      credits,
		Workload:     workload,
		Prerequisite: field(raw, "prerequisite"),
	}
	if syl, ok := raw["syllabus"].(Syllabus); ok {
		comp.Syllabus = syl
	}
	return comp, nil
}

// ValidateStructure normalizes a raw extracted map into a Structure.
func ValidateStructure(raw map[string]any) (Structure, error) {
	if err := requireFields(raw, "code", "course_code"); err != nil {
		return Structure{}, err
	}
	return Structure{
		Code:       field(raw, "code"),
		CourseCode: strings.ToUpper(field(raw, "course_code")),
		Year:       field(raw, "year"),
		Status:     field(raw, "status"),
		Shift:      field(raw, "shift"),
	}, nil
}

// recordKey returns the identity of a validated record inside a batch.
func recordKey(rec any) string {
	switch r := rec.(type) {
	case Course:
		return r.Code
	case Component:
		return r.Code
	case Structure:
		return r.CourseCode + "/" + r.Code
	}
	return ""
}

// ValidateAll validates every raw record of the given kind, returning
// the normalized records and one error per rejected row. Repeated codes
// within the batch are rejected too; the portal listing a code twice
// means the table was misparsed.
func ValidateAll(kind Kind, raws []map[string]any) ([]any, []error) {
	var out []any
	var errs []error
	seen := map[string]bool{}
	for i, raw := range raws {
		var rec any
		var err error
		switch kind {
		case KindCourse:
			rec, err = ValidateCourse(raw)
		case KindComponent:
			rec, err = ValidateComponent(raw)
		case KindStructure:
			rec, err = ValidateStructure(raw)
		default:
			err = fmt.Errorf("unknown record kind %q", kind)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		if key := recordKey(rec); key != "" {
			if seen[key] {
				errs = append(errs, fmt.Errorf(
					"record %d: %w: duplicate code %q in batch", i, ErrInvalidRecord, key))
				continue
			}
			seen[key] = true
		}
		out = append(out, rec)
	}
	return out, errs
}
