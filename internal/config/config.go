// Package config builds collation pipelines from YAML files.
//
// A pipeline file lists transforms in order:
//
//	transforms:
//	  - name: flatten
//	  - name: pad
//	    value: 0
//	    avoid_keys: [label]
//	  - name: stack
//	    shared_memory: true
//	  - name: to_variable
//	    volatile: true
//
// Unknown transform names and unknown options are rejected.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Transform names accepted in pipeline files.
const (
	NameFlatten    = "flatten"
	NamePad        = "pad"
	NameStack      = "stack"
	NameCat        = "cat"
	NameToDevice   = "to_device"
	NameToVariable = "to_variable"
)

// Common errors.
var (
	ErrUnknownTransform = errors.New("unknown transform")
	ErrEmptyPipeline    = errors.New("pipeline has no transforms")
)

// File is a decoded pipeline file.
type File struct {
	Transforms []Step `yaml:"transforms"`
}

// Step is one transform entry. Options holds a *PadOptions, *StackOptions,
// *DeviceOptions, *VariableOptions or nil for flatten.
type Step struct {
	Name    string
	Options any
}

// PadOptions configures a pad step.
type PadOptions struct {
	Value     float64  `yaml:"value"`
	AvoidKeys []string `yaml:"avoid_keys"`
}

// StackOptions configures a stack or cat step.
type StackOptions struct {
	SharedMemory bool     `yaml:"shared_memory"`
	AvoidKeys    []string `yaml:"avoid_keys"`
	// Workers bounds the goroutines used for shared-memory copies.
	// Zero means one per CPU.
	Workers int `yaml:"workers"`
}

// DeviceOptions configures a to_device step.
type DeviceOptions struct {
	Device      string   `yaml:"device"`
	NonBlocking *bool    `yaml:"non_blocking"`
	AvoidKeys   []string `yaml:"avoid_keys"`
}

// VariableOptions configures a to_variable step.
type VariableOptions struct {
	Volatile  bool     `yaml:"volatile"`
	AvoidKeys []string `yaml:"avoid_keys"`
	// Backend is "autodiff" (default) or "cpu".
	Backend string `yaml:"backend"`
}

// UnmarshalYAML decodes a step, picking the options type from its name.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: transform must be a mapping", node.Line)
	}

	rest := &yaml.Node{Kind: yaml.MappingNode, Tag: node.Tag}
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if k.Value == "name" {
			s.Name = v.Value
			continue
		}
		rest.Content = append(rest.Content, k, v)
	}

	switch s.Name {
	case "":
		return fmt.Errorf("line %d: transform has no name", node.Line)
	case NameFlatten:
		s.Options = nil
		if len(rest.Content) > 0 {
			return fmt.Errorf("line %d: %s takes no options", node.Line, s.Name)
		}
		return nil
	case NamePad:
		s.Options = &PadOptions{}
	case NameStack, NameCat:
		s.Options = &StackOptions{}
	case NameToDevice:
		s.Options = &DeviceOptions{}
	case NameToVariable:
		s.Options = &VariableOptions{}
	default:
		return fmt.Errorf("line %d: %w %q", node.Line, ErrUnknownTransform, s.Name)
	}

	if err := decodeStrict(rest, s.Options); err != nil {
		return fmt.Errorf("line %d: %s: %w", node.Line, s.Name, err)
	}
	return nil
}

// decodeStrict re-marshals node so unknown fields can be rejected;
// yaml.Node.Decode has no strict mode.
func decodeStrict(node *yaml.Node, out any) error {
	if len(node.Content) == 0 {
		return nil
	}
	data, err := yaml.Marshal(node)
	if err != nil {
		return fmt.Errorf("re-marshalling options: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}

// Parse decodes a pipeline file from r.
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyPipeline
		}
		return nil, fmt.Errorf("parsing pipeline: %w", err)
	}
	if len(f.Transforms) == 0 {
		return nil, ErrEmptyPipeline
	}
	return &f, nil
}

// Load reads and decodes the pipeline file at path.
func Load(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline file %s: %w", path, err)
	}
	defer fh.Close()

	f, err := Parse(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
