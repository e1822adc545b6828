package project

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// codePattern is the post-normalization shape of a project code.
var codePattern = regexp.MustCompile(`^[A-Z]{2,5}$`)

// rawCodePattern is what we accept before upper-casing: letters only.
var rawCodePattern = regexp.MustCompile(`^[A-Za-z]{2,5}$`)

// Fields is the unvalidated input to Validate, as received from any
// interface.
type Fields struct {
	Name          string
	Code          string
	Path          string
	TicketsPath   string
	Description   string
	RepositoryURL string
	Active        bool
	Strategy      Strategy
	Document      DocumentSettings
}

// NormalizeCode trims and upper-cases a project code. It is idempotent
// and total: any string goes in, the trimmed upper-case form comes out.
// Validity is checked separately.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// hasParentSegment reports whether any path segment is "..". A literal
// ".." inside a name (like "docs..archive") is fine.
func hasParentSegment(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// Validate checks every field and collects all violations before
// returning. On success the returned record has the code upper-cased,
// the path absolute, and the id derived from the path basename.
func Validate(f Fields) (*Record, error) {
	var violations []Violation

	name := strings.TrimSpace(f.Name)
	if name == "" {
		violations = append(violations, Violation{
			Field:   "name",
			Rule:    "required",
			Message: "name must not be empty",
		})
	}

	code := NormalizeCode(f.Code)
	if !rawCodePattern.MatchString(strings.TrimSpace(f.Code)) || !codePattern.MatchString(code) {
		violations = append(violations, Violation{
			Field:   "code",
			Rule:    "pattern",
			Message: "code must be 2-5 letters (normalized to uppercase)",
		})
	}

	absPath := f.Path
	if f.Path == "" {
		violations = append(violations, Violation{
			Field:   "path",
			Rule:    "required",
			Message: "path must not be empty",
		})
	} else if !filepath.IsAbs(f.Path) {
		violations = append(violations, Violation{
			Field:   "path",
			Rule:    "absolute",
			Message: "path must be absolute",
		})
	} else if info, err := os.Stat(f.Path); err != nil || !info.IsDir() {
		violations = append(violations, Violation{
			Field:   "path",
			Rule:    "exists",
			Message: "path must be an existing, accessible directory",
		})
	}

	ticketsPath := f.TicketsPath
	if ticketsPath == "" {
		ticketsPath = DefaultTicketsPath
	}
	if filepath.IsAbs(ticketsPath) || hasParentSegment(ticketsPath) {
		violations = append(violations, Violation{
			Field:   "ticketsPath",
			Rule:    "relative",
			Message: "ticketsPath must be a relative path inside the project",
		})
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	return &Record{
		ID:            filepath.Base(absPath),
		Code:          code,
		Name:          name,
		Path:          absPath,
		TicketsPath:   ticketsPath,
		Description:   strings.TrimSpace(f.Description),
		RepositoryURL: strings.TrimSpace(f.RepositoryURL),
		Active:        f.Active,
		Strategy:      f.Strategy,
		Document:      f.Document,
	}, nil
}
