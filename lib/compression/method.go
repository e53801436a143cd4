// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compression

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Method identifies how an entry's stored bytes were produced. The
// numeric values are written into archives and must not change.
type Method uint8

const (
	// None stores entry bytes verbatim.
	None Method = 0

	// Generic is raw DEFLATE. Used for text-like content.
	Generic Method = 1

	// Block is a single LZ4 block. The default for binary content.
	Block Method = 2

	// Structural is the class-file codec. Stored bytes reference the
	// archive's shared byte pool.
	Structural Method = 3
)

// Methods lists every valid method in tag order.
var Methods = []Method{None, Generic, Block, Structural}

// String returns the method's lower-case name.
func (m Method) String() string {
	switch m {
	case None:
		return "none"
	case Generic:
		return "generic"
	case Block:
		return "block"
	case Structural:
		return "structural"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// Valid reports whether m is one of the defined methods.
func (m Method) Valid() bool {
	return m <= Structural
}

// ParseMethod parses a method name as produced by String.
func ParseMethod(name string) (Method, error) {
	switch name {
	case "none":
		return None, nil
	case "generic":
		return Generic, nil
	case "block":
		return Block, nil
	case "structural":
		return Structural, nil
	default:
		return 0, fmt.Errorf("unknown compression method %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid compression method %d", uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MarshalYAML writes the method as its name.
func (m Method) MarshalYAML() (any, error) {
	text, err := m.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(text), nil
}

// UnmarshalYAML reads a method name.
func (m *Method) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: compression method must be a scalar", node.Line)
	}
	if err := m.UnmarshalText([]byte(node.Value)); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	return nil
}
