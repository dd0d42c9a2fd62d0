package specialtariff

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// tableFile is the YAML form of the cross-reference table.
type tableFile struct {
	Programs []programRow `yaml:"programs"`
}

type programRow struct {
	Country       string   `yaml:"country"`
	HTSPrefix     string   `yaml:"hts_prefix"`
	SpecialNumber string   `yaml:"special_number"`
	ProgramType   string   `yaml:"program_type"`
	Priority      *float64 `yaml:"priority"`
	AutoInclude   bool     `yaml:"auto_include"`
	EffectiveFrom string   `yaml:"effective_from"`
	EffectiveTo   string   `yaml:"effective_to"`
}

// LoadYAML reads a cross-reference table from a YAML file of the form
//
//	programs:
//	  - country: CN
//	    hts_prefix: "8517"
//	    special_number: "9903.88.03"
//	    program_type: "301"
//	    priority: 5
//	    auto_include: true
//	    effective_from: "2018-09-24"
func LoadYAML(path string) ([]Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cross-reference file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes a cross-reference table already in memory.
func ParseYAML(data []byte) ([]Program, error) {
	var table tableFile
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse cross-reference YAML: %w", err)
	}

	programs := make([]Program, 0, len(table.Programs))
	for i, row := range table.Programs {
		p, err := row.toProgram()
		if err != nil {
			return nil, fmt.Errorf("program %d: %w", i+1, err)
		}
		programs = append(programs, p)
	}
	return programs, nil
}

func (r programRow) toProgram() (Program, error) {
	p := Program{
		Country:       r.Country,
		HTSPrefix:     r.HTSPrefix,
		SpecialNumber: r.SpecialNumber,
		ProgramType:   r.ProgramType,
		Priority:      r.Priority,
		AutoInclude:   r.AutoInclude,
	}

	var err error
	if p.EffectiveFrom, err = parseTextDate(r.EffectiveFrom); err != nil {
		return Program{}, fmt.Errorf("invalid effective_from: %w", err)
	}
	if p.EffectiveTo, err = parseTextDate(r.EffectiveTo); err != nil {
		return Program{}, fmt.Errorf("invalid effective_to: %w", err)
	}

	if err := validateProgram(p); err != nil {
		return Program{}, err
	}
	return p, nil
}

func parseTextDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range cellDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", value)
}
