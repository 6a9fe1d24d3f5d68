// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// METADATA TYPE
// =============================================================================

// Metadata is the side-channel enrichment delivered alongside an answer.
// It never forms part of the streamed text.
type Metadata struct {
	AIConfidence float64    `json:"aiConfidence"`
	References   []Citation `json:"references,omitempty"`
	Cases        []Citation `json:"cases,omitempty"`
	LegalContext FlexText   `json:"legalContext,omitempty"`
	QuickAction  FlexText   `json:"quickAction,omitempty"`
}

// IsEmpty returns true if no enrichment has arrived.
func (m Metadata) IsEmpty() bool {
	return m.AIConfidence == 0 && len(m.References) == 0 && len(m.Cases) == 0 &&
		m.LegalContext == "" && m.QuickAction == ""
}

// ConfidencePercent returns the confidence as a 0-100 integer. The backend
// sends either a 0-1 ratio or a percentage.
func (m Metadata) ConfidencePercent() int {
	c := m.AIConfidence
	if c <= 1 {
		c *= 100
	}
	if c > 100 {
		c = 100
	}
	if c < 0 {
		c = 0
	}
	return int(c + 0.5)
}

// Merge overlays the non-empty fields of other onto m.
func (m Metadata) Merge(other Metadata) Metadata {
	if other.AIConfidence != 0 {
		m.AIConfidence = other.AIConfidence
	}
	if len(other.References) > 0 {
		m.References = other.References
	}
	if len(other.Cases) > 0 {
		m.Cases = other.Cases
	}
	if other.LegalContext != "" {
		m.LegalContext = other.LegalContext
	}
	if other.QuickAction != "" {
		m.QuickAction = other.QuickAction
	}
	return m
}

// =============================================================================
// CITATION TYPE
// =============================================================================

// Citation is a statute, article or case the answer relies on. The backend
// sends either a bare string or an object.
type Citation struct {
	Title    string `json:"title,omitempty"`
	Citation string `json:"citation,omitempty"`
	URL      string `json:"url,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

// UnmarshalJSON accepts a string or an object.
func (c *Citation) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Citation{Title: s}
		return nil
	}

	type plain Citation
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("citation: %w", err)
	}
	*c = Citation(p)
	return nil
}

// String returns a one-line label for the citation.
func (c Citation) String() string {
	parts := make([]string, 0, 2)
	if c.Title != "" {
		parts = append(parts, c.Title)
	}
	if c.Citation != "" && c.Citation != c.Title {
		parts = append(parts, "("+c.Citation+")")
	}
	if len(parts) == 0 {
		return c.URL
	}
	return strings.Join(parts, " ")
}

// =============================================================================
// FLEX TEXT TYPE
// =============================================================================

// FlexText holds a field the backend sends as either a string or a JSON
// object. Objects are kept in compact JSON form.
type FlexText string

// UnmarshalJSON accepts any JSON value.
func (f *FlexText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexText(s)
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*f = FlexText(buf.String())
	}
	return nil
}
