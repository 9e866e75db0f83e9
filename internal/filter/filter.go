// Package filter implements the small tag value cleanup language used to
// normalize survey attribute values before they become OSM tags. A filter
// file holds one rule per line; blank lines and lines starting with # are
// skipped. A rule is either the word "title_case" or a substitution of the
// form "pattern => replacement", where pattern is a case-insensitive
// regular expression and replacement may use $1-style group references.
package filter

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"
)

// Filter applies an ordered list of cleanup rules to a string.
type Filter struct {
	rules []rule
}

type rule func(string) string

// Load reads filter rules from the given files, in order.
func Load(paths ...string) (*Filter, error) {
	f := &Filter{}
	for _, path := range paths {
		if err := f.loadFile(path); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Filter) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening filter file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r, err := parseRule(line)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		f.rules = append(f.rules, r)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading filter file %s: %w", path, err)
	}
	return nil
}

func parseRule(line string) (rule, error) {
	if line == "title_case" {
		return titleCase, nil
	}

	parts := strings.SplitN(line, " => ", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid filter: %s", line)
	}
	re, err := regexp.Compile("(?i)" + parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid filter pattern %q: %w", parts[0], err)
	}
	replacement := parts[1]
	return func(s string) string {
		return re.ReplaceAllString(s, replacement)
	}, nil
}

// Apply runs every rule over the string in load order.
func (f *Filter) Apply(s string) string {
	if f == nil {
		return s
	}
	for _, r := range f.rules {
		s = r(s)
	}
	return s
}

// Len returns the number of loaded rules.
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.rules)
}

// titleCase upper-cases the first letter of every alphabetic run and
// lower-cases the rest, so "MAIN ST" and "o'brien rd" become "Main St" and
// "O'Brien Rd".
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}
