package theme

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// yamlDocument is the on-disk YAML theme layout. Tokens maps group names to
// ordered token maps, so it is decoded as a node to keep declaration order.
type yamlDocument struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Tokens      yaml.Node `yaml:"tokens"`
}

// ParseYAML reads a theme of the form:
//
//	name: m-light-sepia
//	tokens:
//	  text:
//	    font: "'Source Sans Pro', sans-serif"
//	  basics:
//	    color: "#4c3d2e"
//
// The document name, when present, overrides name.
func ParseYAML(name string, src []byte) (*Theme, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, &MalformedValueError{Err: fmt.Errorf("parsing yaml: %w", err)}
	}
	if doc.Name != "" {
		name = doc.Name
	}

	root := &doc.Tokens
	if root.Kind == 0 {
		return nil, &MalformedValueError{Err: fmt.Errorf("yaml theme has no tokens")}
	}
	if root.Kind != yaml.MappingNode {
		return nil, &MalformedValueError{Err: fmt.Errorf("line %d: tokens must be a mapping of groups", root.Line)}
	}

	var decls []Declaration
	for i := 0; i+1 < len(root.Content); i += 2 {
		groupKey, groupNode := root.Content[i], root.Content[i+1]
		if groupNode.Kind != yaml.MappingNode {
			return nil, &MalformedValueError{Err: fmt.Errorf("line %d: group %q must be a mapping of tokens", groupNode.Line, groupKey.Value)}
		}
		for j := 0; j+1 < len(groupNode.Content); j += 2 {
			key, value := groupNode.Content[j], groupNode.Content[j+1]
			if value.Kind != yaml.ScalarNode {
				return nil, &MalformedValueError{
					Name: NormalizeName(key.Value),
					Err:  fmt.Errorf("line %d: value must be a scalar", value.Line),
				}
			}
			decls = append(decls, Declaration{
				Name:  key.Value,
				Value: value.Value,
				Group: GroupSlug(groupKey.Value),
			})
		}
	}

	t, err := New(name, decls)
	if err != nil {
		return nil, err
	}
	t.description = doc.Description
	return t, nil
}

// WriteYAML writes declarations in the layout read by ParseYAML.
func WriteYAML(w io.Writer, name, description string, decls []Declaration) error {
	tokens := &yaml.Node{Kind: yaml.MappingNode}
	var group *yaml.Node
	groupName := ""
	for i, decl := range decls {
		if group == nil || decl.Group != groupName || i == 0 {
			groupName = decl.Group
			key := groupName
			if key == "" {
				key = "default"
			}
			group = &yaml.Node{Kind: yaml.MappingNode}
			tokens.Content = append(tokens.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: key},
				group,
			)
		}
		group.Content = append(group.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: NormalizeName(decl.Name)},
			&yaml.Node{Kind: yaml.ScalarNode, Value: decl.Value, Style: yaml.DoubleQuotedStyle},
		)
	}

	doc := yamlDocument{Name: name, Description: description, Tokens: *tokens}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}
