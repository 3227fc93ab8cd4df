package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/exam-automation/internal/schemas"
	"github.com/jonathan/exam-automation/internal/types"
	"gopkg.in/yaml.v3"
)

// examFile is the layout of an exam seed file:
//
//	exams:
//	  - slug: jee-main
//	    name: JEE Main
//	    url: https://jeemain.example.org
//	    field_mappings: {full_name: txtName}
type examFile struct {
	Exams []map[string]any `yaml:"exams"`
}

// loadExamFile reads a YAML seed file and returns one create request per exam.
func loadExamFile(path string) ([]types.CreateExamConfigRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read exam file: %w", err)
	}
	return parseExamFile(data)
}

// parseExamFile decodes YAML and validates every entry against the exam
// configuration JSON schema used by the API, so a seed file cannot store
// anything the admin endpoints would reject.
func parseExamFile(data []byte) ([]types.CreateExamConfigRequest, error) {
	var file examFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(file.Exams) == 0 {
		return nil, fmt.Errorf("exam file has no entries under \"exams\"")
	}

	reqs := make([]types.CreateExamConfigRequest, 0, len(file.Exams))
	seen := make(map[string]int, len(file.Exams))
	for i, entry := range file.Exams {
		doc, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("exam #%d: failed to convert to JSON: %w", i+1, err)
		}
		if err := schemas.ValidateExamConfig(doc); err != nil {
			return nil, fmt.Errorf("exam #%d: %w", i+1, err)
		}

		var req types.CreateExamConfigRequest
		if err := json.Unmarshal(doc, &req); err != nil {
			return nil, fmt.Errorf("exam #%d: %w", i+1, err)
		}
		if prev, ok := seen[req.Slug]; ok {
			return nil, fmt.Errorf("exam #%d: slug %q already used by exam #%d", i+1, req.Slug, prev)
		}
		seen[req.Slug] = i + 1
		reqs = append(reqs, req)
	}
	return reqs, nil
}
