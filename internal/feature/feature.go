// Package feature parses feature files into statements and activity blocks.
//
// Format:
//
//	# comment
//	;; comment
//	Activity: Is logged in as {user}
//	    set "loggedIn" to "true"
//	    set "user" to "{user}"
//	ensure Is logged in as "Admin"
//
// Each unindented line is a statement. "Activity:" opens an outcome block;
// the indented lines that follow are its proof statements.
package feature

import (
	"fmt"
	"os"
	"strings"
)

// ActivityPrefix opens an outcome block (matched case-insensitively).
const ActivityPrefix = "activity:"

// Statement is one statement line.
type Statement struct {
	Text string `json:"text"`
	Line int    `json:"line"`
}

// Activity is an outcome phrase with its proof statements.
type Activity struct {
	Outcome string      `json:"outcome"`
	Proofs  []Statement `json:"proofs"`
	Line    int         `json:"line"`
}

// ProofTexts returns the proof statement texts in order.
func (a Activity) ProofTexts() []string {
	out := make([]string, len(a.Proofs))
	for i, p := range a.Proofs {
		out[i] = p.Text
	}
	return out
}

// Feature is a parsed feature or background file.
type Feature struct {
	Path       string      `json:"path"`
	Background bool        `json:"background,omitempty"`
	Statements []Statement `json:"statements"`
	Activities []Activity  `json:"activities,omitempty"`
}

// ParseError reports a malformed line.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
}

func isComment(trimmed string) bool {
	return strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";;")
}

func isIndented(line string) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}

// Parse parses feature content. It performs no I/O.
func Parse(content, path string) (*Feature, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	f := &Feature{Path: path, Statements: []Statement{}}

	var current *Activity
	closeActivity := func() error {
		if current == nil {
			return nil
		}
		if len(current.Proofs) == 0 {
			return &ParseError{Path: path, Line: current.Line, Message: fmt.Sprintf("activity %q has no proof statements", current.Outcome)}
		}
		f.Activities = append(f.Activities, *current)
		current = nil
		return nil
	}

	for i, line := range strings.Split(content, "\n") {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isComment(trimmed) {
			continue
		}

		if strings.HasPrefix(strings.ToLower(trimmed), ActivityPrefix) {
			if err := closeActivity(); err != nil {
				return nil, err
			}
			phrase := strings.TrimSpace(trimmed[len(ActivityPrefix):])
			if phrase == "" {
				return nil, &ParseError{Path: path, Line: lineNum, Message: "activity has no outcome phrase"}
			}
			current = &Activity{Outcome: phrase, Line: lineNum}
			continue
		}

		if isIndented(line) {
			if current == nil {
				return nil, &ParseError{Path: path, Line: lineNum, Message: "indented line outside an activity block"}
			}
			current.Proofs = append(current.Proofs, Statement{Text: trimmed, Line: lineNum})
			continue
		}

		if err := closeActivity(); err != nil {
			return nil, err
		}
		f.Statements = append(f.Statements, Statement{Text: trimmed, Line: lineNum})
	}

	if err := closeActivity(); err != nil {
		return nil, err
	}
	return f, nil
}

// ParseFile reads and parses a feature file.
func ParseFile(path string) (*Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feature: %w", err)
	}
	return Parse(string(data), path)
}

// ParseBackground reads a background file. Backgrounds may only define activities.
func ParseBackground(path string) (*Feature, error) {
	f, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return AsBackground(f)
}

// AsBackground marks f as a background, rejecting plain statements.
func AsBackground(f *Feature) (*Feature, error) {
	if len(f.Statements) > 0 {
		st := f.Statements[0]
		return nil, &ParseError{Path: f.Path, Line: st.Line, Message: "backgrounds may only define activities"}
	}
	f.Background = true
	return f, nil
}
