package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File format:
//
//	rules:
//	  - path: /v1/cafeterias
//	    method: GET
//	    require: public
//	  - path: /v1/admin/*
//	    require: admin
type fileRule struct {
	Path    string `yaml:"path"`
	Method  string `yaml:"method"`
	Require string `yaml:"require"`
}

type policyFile struct {
	Rules []fileRule `yaml:"rules"`
}

// Load reads a route policy table from a YAML file.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return Parse(raw)
}

// Parse builds a table from YAML policy bytes.
func Parse(raw []byte) (*Table, error) {
	var f policyFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse policy yaml: %w", err)
	}

	rules := make([]Rule, 0, len(f.Rules))
	for i, fr := range f.Rules {
		req, err := ParseRequirement(fr.Require)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, Rule{
			Pattern: fr.Path,
			Method:  fr.Method,
			Require: req,
		})
	}
	return NewTable(rules)
}
