// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// args.go - Argument parsing shared by all lexchat commands.
package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser splits subcommand arguments into positionals and flags.
// "--flag value", "--flag=value" and "-f value" all set a string flag;
// names declared as booleans never take the next argument; "--" ends flag
// parsing.
type ArgParser struct {
	positional []string
	flags      map[string]string
	boolFlags  map[string]bool
	boolNames  map[string]bool
}

// NewArgParser parses raw. Names listed in boolNames are boolean flags.
//
//	p := NewArgParser([]string{"list", "--limit", "5", "--json"}, "json")
//	p.Subcommand()     // "list"
//	p.Flag("limit")    // "5"
//	p.BoolFlag("json") // true
func NewArgParser(raw []string, boolNames ...string) *ArgParser {
	p := &ArgParser{
		flags:     make(map[string]string),
		boolFlags: make(map[string]bool),
		boolNames: make(map[string]bool, len(boolNames)),
	}
	for _, name := range boolNames {
		p.boolNames[name] = true
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		switch {
		case arg == "--":
			p.positional = append(p.positional, raw[i+1:]...)
			return p
		case arg == "-" || !strings.HasPrefix(arg, "-"):
			p.positional = append(p.positional, arg)
			continue
		}

		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if p.boolNames[name] {
			b := true
			if hasValue {
				parsed, err := ParseBoolString(value)
				if err != nil {
					// Keep the text so a later lookup can report it.
					p.flags[name] = value
					continue
				}
				b = parsed
			}
			p.boolFlags[name] = b
			continue
		}

		switch {
		case hasValue:
			p.flags[name] = value
		case i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-"):
			p.flags[name] = raw[i+1]
			i++
		default:
			p.boolFlags[name] = true
		}
	}
	return p
}

// Subcommand returns the first positional argument, or "".
func (p *ArgParser) Subcommand() string {
	return p.Positional(0)
}

// Flag returns the value of a string flag, or "" if it was not given.
func (p *ArgParser) Flag(name string) string {
	return p.flags[strings.TrimLeft(name, "-")]
}

// IntFlag returns a positive integer flag, or def when the flag is absent.
func (p *ArgParser) IntFlag(name string, def int) (int, error) {
	raw := p.Flag(name)
	if raw == "" {
		return def, nil
	}
	n, err := ParseIntWithValidation(raw, name)
	if err != nil {
		return 0, &ValidationError{Field: name, Value: raw, Reason: err.Error()}
	}
	return n, nil
}

// BoolFlag returns the value of a boolean flag.
func (p *ArgParser) BoolFlag(name string) bool {
	return p.boolFlags[strings.TrimLeft(name, "-")]
}

// Positional returns the positional argument at index, or "". Index 0 is
// the subcommand.
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalFrom returns the positional arguments starting at index.
func (p *ArgParser) PositionalFrom(index int) []string {
	if index < 0 || index >= len(p.positional) {
		return nil
	}
	return p.positional[index:]
}

// =============================================================================
// HELPERS
// =============================================================================

// ParseIntWithValidation parses a positive integer.
func ParseIntWithValidation(s string, fieldName string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("%s is required", fieldName)
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", fieldName, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", fieldName, val)
	}
	return val, nil
}

// ParseBoolString parses true/false, yes/no, y/n, 1/0 and on/off, ignoring
// case.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "on":
		return true, nil
	case "false", "no", "n", "0", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %s", s)
	}
}
