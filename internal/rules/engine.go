package rules

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a transcript rules file.
//
//	rules:
//	  - match: select star
//	    replace: select *
//	  - regex: '\bfrom the (\w+) table\b'
//	    replace: from $1
//	    global: true
type File struct {
	Rules []Rule `yaml:"rules"`
}

// Rule is either a literal (Match) or a regular expression (Regex) rewrite.
type Rule struct {
	Match         string `yaml:"match"`
	Regex         string `yaml:"regex"`
	Replace       string `yaml:"replace"`
	Global        bool   `yaml:"global"`
	CaseSensitive bool   `yaml:"case_sensitive"`
}

type compiledRule struct {
	re          *regexp.Regexp
	replacement string
	// literals always rewrite every occurrence
	global bool
}

// Engine rewrites transcripts with deterministic substitutions, applying
// the rule list repeatedly until the text stops changing.
type Engine struct {
	rules     []compiledRule
	loopLimit int
}

// NewEngine loads rules from a YAML file. An empty path or a missing file
// yields an engine that returns text unchanged.
func NewEngine(path string, loopLimit int) (*Engine, error) {
	if loopLimit <= 0 {
		loopLimit = 30
	}
	if strings.TrimSpace(path) == "" {
		return &Engine{loopLimit: loopLimit}, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Engine{loopLimit: loopLimit}, nil
		}
		return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
	}

	compiled, err := parse(contents)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rules file %q: %w", path, err)
	}
	return &Engine{rules: compiled, loopLimit: loopLimit}, nil
}

// parse compiles a rules document.
func parse(contents []byte) ([]compiledRule, error) {
	if len(bytes.TrimSpace(contents)) == 0 {
		return nil, nil
	}

	var file File
	decoder := yaml.NewDecoder(bytes.NewReader(contents))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}

	compiled := make([]compiledRule, 0, len(file.Rules))
	for index, rule := range file.Rules {
		c, err := rule.compile()
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", index+1, err)
		}
		compiled = append(compiled, c)
	}
	return compiled, nil
}

func (r Rule) compile() (compiledRule, error) {
	match := strings.TrimSpace(r.Match)
	pattern := r.Regex

	switch {
	case match != "" && pattern != "":
		return compiledRule{}, errors.New("set either match or regex, not both")
	case match != "":
		pattern = regexp.QuoteMeta(match)
	case pattern == "":
		return compiledRule{}, errors.New("rule has neither match nor regex")
	}

	if !r.CaseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return compiledRule{}, fmt.Errorf("invalid regex: %w", err)
	}
	return compiledRule{re: re, replacement: r.Replace, global: r.Global || match != ""}, nil
}

func (r compiledRule) apply(input string) string {
	if r.global {
		return r.re.ReplaceAllString(input, r.replacement)
	}

	loc := r.re.FindStringSubmatchIndex(input)
	if loc == nil {
		return input
	}
	var expanded []byte
	expanded = r.re.ExpandString(expanded, r.replacement, input, loc)
	return input[:loc[0]] + string(expanded) + input[loc[1]:]
}

// Apply transforms text. It fails when the rules keep rewriting the text
// past the iteration limit.
func (e *Engine) Apply(text string) (string, error) {
	if len(e.rules) == 0 {
		return text, nil
	}

	result := text
	for i := 0; i < e.loopLimit; i++ {
		next := result
		for _, rule := range e.rules {
			next = rule.apply(next)
		}
		if next == result {
			return result, nil
		}
		result = next
	}
	return "", fmt.Errorf("rules did not stabilize after %d iterations", e.loopLimit)
}

// Len reports how many rules are loaded.
func (e *Engine) Len() int {
	return len(e.rules)
}
