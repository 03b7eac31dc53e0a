package service

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jmulder/clearcat/internal/models"
)

// defaultFacultyMapping covers the department names seen in registry exports.
// Keys are normalized department names, values faculty codes.
var defaultFacultyMapping = map[string]string{
	"engineering technology":                                   "ET",
	"construerende technische wetenschappen":                   "ET",
	"science and technology":                                   "TNW",
	"technische natuurwetenschappen":                           "TNW",
	"electrical engineering, mathematics and computer science": "EEMCS",
	"elektrotechniek, wiskunde en informatica":                 "EEMCS",
	"behavioural, management and social sciences":              "BMS",
	"gedragswetenschappen":                                     "BMS",
	"geo-information science and earth observation":            "ITC",
}

// FacultyMapper resolves a raw department name to a faculty code. Unknown
// departments resolve to the UNMAPPED sentinel and are logged once each.
type FacultyMapper struct {
	mapping map[string]string

	mu     sync.Mutex
	warned map[string]struct{}
}

// NewFacultyMapper builds a mapper from the built-in table, optionally
// overlaid with entries from a YAML file of the form department: CODE.
func NewFacultyMapper(mappingFile string) (*FacultyMapper, error) {
	mapping := make(map[string]string, len(defaultFacultyMapping))
	for k, v := range defaultFacultyMapping {
		mapping[k] = v
	}

	if mappingFile != "" {
		data, err := os.ReadFile(mappingFile)
		if err != nil {
			return nil, fmt.Errorf("read faculty mapping: %w", err)
		}
		var overlay map[string]string
		if err := yaml.Unmarshal(data, &overlay); err != nil {
			return nil, fmt.Errorf("parse faculty mapping: %w", err)
		}
		for k, v := range overlay {
			mapping[normalizeDepartment(k)] = strings.ToUpper(strings.TrimSpace(v))
		}
	}

	return &FacultyMapper{
		mapping: mapping,
		warned:  make(map[string]struct{}),
	}, nil
}

// Resolve maps a department name to its faculty code, or FacultyUnmapped.
func (m *FacultyMapper) Resolve(department string) string {
	norm := normalizeDepartment(department)
	if norm == "" {
		return models.FacultyUnmapped
	}
	if code, ok := m.mapping[norm]; ok {
		return code
	}

	// A department name is already a code when it matches a mapped value.
	upper := strings.ToUpper(strings.TrimSpace(department))
	for _, code := range m.mapping {
		if code == upper {
			return code
		}
	}

	m.mu.Lock()
	_, seen := m.warned[norm]
	if !seen {
		m.warned[norm] = struct{}{}
	}
	m.mu.Unlock()

	if !seen {
		slog.Warn("unmapped department", "department", department)
	}
	return models.FacultyUnmapped
}

func normalizeDepartment(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
