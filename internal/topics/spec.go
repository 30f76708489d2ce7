package topics

import (
	"fmt"
	"regexp"
)

// PolicySpec is the serialisable form of a Policy.
type PolicySpec struct {
	MaxItems       int      `yaml:"max_items"`
	MinLen         int      `yaml:"min_len"`
	MaxLen         int      `yaml:"max_len"`
	RejectNumeric  bool     `yaml:"reject_numeric"`
	Candidates     []string `yaml:"candidates"`
	Strip          []string `yaml:"strip"`
	Ignore         []string `yaml:"ignore"`
	IgnorePrefixes []string `yaml:"ignore_prefixes"`
}

// Compile validates the spec and compiles its patterns.
func (s PolicySpec) Compile(name string) (Policy, error) {
	if len(s.Candidates) == 0 {
		return Policy{}, fmt.Errorf("policy %q: at least one candidate pattern is required", name)
	}
	if s.MaxItems < 0 || s.MinLen < 0 || s.MaxLen < 0 {
		return Policy{}, fmt.Errorf("policy %q: limits must be non-negative", name)
	}
	if s.MaxLen > 0 && s.MaxLen <= s.MinLen+1 {
		return Policy{}, fmt.Errorf("policy %q: max_len %d admits no label above min_len %d", name, s.MaxLen, s.MinLen)
	}

	candidates, err := compileAll(name, "candidate", s.Candidates)
	if err != nil {
		return Policy{}, err
	}
	strip, err := compileAll(name, "strip", s.Strip)
	if err != nil {
		return Policy{}, err
	}

	return Policy{
		Name:           name,
		MaxItems:       s.MaxItems,
		MinLen:         s.MinLen,
		MaxLen:         s.MaxLen,
		RejectNumeric:  s.RejectNumeric,
		Candidates:     candidates,
		Strip:          strip,
		Ignore:         append([]string(nil), s.Ignore...),
		IgnorePrefixes: append([]string(nil), s.IgnorePrefixes...),
	}, nil
}

// Spec returns the serialisable form of p.
func (p Policy) Spec() PolicySpec {
	return PolicySpec{
		MaxItems:       p.MaxItems,
		MinLen:         p.MinLen,
		MaxLen:         p.MaxLen,
		RejectNumeric:  p.RejectNumeric,
		Candidates:     sources(p.Candidates),
		Strip:          sources(p.Strip),
		Ignore:         append([]string(nil), p.Ignore...),
		IgnorePrefixes: append([]string(nil), p.IgnorePrefixes...),
	}
}

func compileAll(policy, kind string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, pat := range patterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("policy %q: %s pattern %q: %w", policy, kind, pat, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func sources(res []*regexp.Regexp) []string {
	out := make([]string, len(res))
	for i, re := range res {
		out[i] = re.String()
	}
	return out
}
