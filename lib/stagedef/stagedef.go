// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package stagedef provides parsing and validation for pipeline stage
// definitions: the ordered list of stages a session moves through,
// the consumer group that works each stage, and the approval gate
// that closes it.
//
// Definitions are authored on disk as JSONC files (JSON extended with
// comments and trailing commas). The built-in Default covers the
// standard five-stage pipeline; a definition file replaces it
// wholesale, it is never merged.
package stagedef

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/tidwall/jsonc"

	"github.com/stagegate-io/stagegate/gate"
)

// namePattern matches valid stage, group, and stream names: lowercase
// alphanumerics, hyphens, and underscores, starting with a letter.
// Anchored to the full string. The character set keeps every name
// safe for embedding in store keys.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Stage is one step of the pipeline: the consumer group that
// processes it and, when the stage ends at a human checkpoint, the
// gate type guarding the transition out of it.
type Stage struct {
	Name        string    `json:"name"`
	Group       string    `json:"group"`
	GateType    gate.Type `json:"gate_type,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Definition is a full pipeline layout. Stream names the event stream
// the stages share; empty means the deployment default.
type Definition struct {
	Stream string  `json:"stream,omitempty"`
	Stages []Stage `json:"stages"`
}

// Default returns the standard five-stage pipeline. Every stage ends
// at a gate; fully automated stages are possible in authored files by
// omitting gate_type.
func Default() *Definition {
	return &Definition{
		Stream: "pipeline",
		Stages: []Stage{
			{
				Name:        "discovery",
				Group:       "discovery-workers",
				GateType:    gate.BacklogApproval,
				Description: "Requirements capture and backlog shaping.",
			},
			{
				Name:        "design",
				Group:       "design-workers",
				GateType:    gate.DesignApproval,
				Description: "Architecture and interface design.",
			},
			{
				Name:        "development",
				Group:       "development-workers",
				GateType:    gate.CodeReview,
				Description: "Implementation on a task branch.",
			},
			{
				Name:        "validation",
				Group:       "validation-workers",
				GateType:    gate.ValidationSignoff,
				Description: "Test and acceptance runs against the branch.",
			},
			{
				Name:        "deployment",
				Group:       "deployment-workers",
				GateType:    gate.ReleaseApproval,
				Description: "Release preparation and rollout.",
			},
		},
	}
}

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into a Definition.
func Parse(data []byte) (*Definition, error) {
	stripped := jsonc.ToJSON(data)

	var def Definition
	if err := json.Unmarshal(stripped, &def); err != nil {
		return nil, fmt.Errorf("parsing stage definition: %w", err)
	}

	return &def, nil
}

// ReadFile reads a JSONC stage definition from disk and parses it.
func ReadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return def, nil
}

// Validate checks a Definition for structural issues. Returns a list
// of human-readable issue descriptions. An empty list means the
// definition is valid.
//
// Structural checks include:
//   - At least one stage is required
//   - Stage names and groups must match namePattern and be unique
//   - A duplicate group would make two stages compete for the same
//     deliveries, so groups are checked across the whole definition
//   - gate_type, when present, must be a known gate type
//   - Stream, when present, must match namePattern
func Validate(def *Definition) []string {
	var issues []string

	if def.Stream != "" && !namePattern.MatchString(def.Stream) {
		issues = append(issues, fmt.Sprintf("stream %q: must match %s", def.Stream, namePattern))
	}

	if len(def.Stages) == 0 {
		issues = append(issues, "definition has no stages (at least one stage is required)")
	}

	stageNames := make(map[string]int, len(def.Stages))
	groupNames := make(map[string]int, len(def.Stages))
	for index, stage := range def.Stages {
		prefix := fmt.Sprintf("stages[%d]", index)

		if stage.Name == "" {
			issues = append(issues, fmt.Sprintf("%s: name is required", prefix))
		} else if !namePattern.MatchString(stage.Name) {
			issues = append(issues, fmt.Sprintf("%s %q: name must match %s", prefix, stage.Name, namePattern))
		} else if firstIndex, exists := stageNames[stage.Name]; exists {
			issues = append(issues, fmt.Sprintf(
				"%s %q: duplicate stage name (first used at stages[%d])",
				prefix, stage.Name, firstIndex,
			))
		} else {
			stageNames[stage.Name] = index
		}

		if stage.Group == "" {
			issues = append(issues, fmt.Sprintf("%s %q: group is required", prefix, stage.Name))
		} else if !namePattern.MatchString(stage.Group) {
			issues = append(issues, fmt.Sprintf("%s %q: group must match %s", prefix, stage.Group, namePattern))
		} else if firstIndex, exists := groupNames[stage.Group]; exists {
			issues = append(issues, fmt.Sprintf(
				"%s %q: duplicate group %q (first used at stages[%d])",
				prefix, stage.Name, stage.Group, firstIndex,
			))
		} else {
			groupNames[stage.Group] = index
		}

		if stage.GateType != "" {
			if _, err := gate.ParseType(string(stage.GateType)); err != nil {
				issues = append(issues, fmt.Sprintf("%s %q: %v", prefix, stage.Name, err))
			}
		}
	}

	return issues
}

// Groups returns the consumer groups of every stage, in pipeline
// order.
func (d *Definition) Groups() []string {
	groups := make([]string, 0, len(d.Stages))
	for _, stage := range d.Stages {
		groups = append(groups, stage.Group)
	}
	return groups
}

// StageForGate returns the stage a gate type closes, or nil when no
// stage uses it.
func (d *Definition) StageForGate(gateType gate.Type) *Stage {
	for index := range d.Stages {
		if d.Stages[index].GateType == gateType {
			return &d.Stages[index]
		}
	}
	return nil
}
