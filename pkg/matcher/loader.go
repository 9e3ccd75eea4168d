package matcher

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

type document struct {
	ProblemMatcher []*Matcher `yaml:"problemMatcher"`
}

// LoadDefinitions parses a matcher-definition document of the shape
// {"problemMatcher": [...]}. YAML and JSON both work (JSON is a YAML subset).
func LoadDefinitions(b []byte) ([]*Matcher, error) {
	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	if len(doc.ProblemMatcher) == 0 {
		return nil, errors.New("missing problemMatcher block")
	}
	return doc.ProblemMatcher, nil
}

// Matcher decodes from its plain external shape; Pattern needs a custom
// decoder because field keys are open-ended.
func (m *Matcher) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Owner    string    `yaml:"owner"`
		Severity string    `yaml:"severity"`
		Pattern  []Pattern `yaml:"pattern"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	m.Owner = raw.Owner
	m.Severity = raw.Severity
	m.Pattern = raw.Pattern
	return nil
}

// UnmarshalYAML maps "regexp" and "loop" to their typed fields and every
// other key to a capture-group index, recognized or extra.
func (p *Pattern) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("pattern must be a mapping (line %d)", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		var key string
		if err := keyNode.Decode(&key); err != nil {
			return err
		}
		switch key {
		case "regexp":
			if err := valNode.Decode(&p.Regexp); err != nil {
				return err
			}
			continue
		case "loop":
			if err := valNode.Decode(&p.Loop); err != nil {
				return err
			}
			continue
		}
		var g int
		if err := valNode.Decode(&g); err != nil {
			return fmt.Errorf("pattern field %q: capture group index must be an integer", key)
		}
		gp := &g
		switch key {
		case FieldFile:
			p.File = gp
		case FieldFromPath:
			p.FromPath = gp
		case FieldLine:
			p.Line = gp
		case FieldColumn:
			p.Column = gp
		case FieldSeverity:
			p.Severity = gp
		case FieldCode:
			p.Code = gp
		case FieldMessage:
			p.Message = gp
		default:
			if p.Extra == nil {
				p.Extra = map[string]*int{}
			}
			p.Extra[key] = gp
		}
	}
	return nil
}
