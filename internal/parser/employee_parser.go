package parser

import (
	"fmt"
	"regexp"
	"strings"
)

var employeeRegex = regexp.MustCompile(`^[A-Z][A-Z0-9_-]{0,31}$`)

// NormalizeEmployeeID uppercases an employee id and checks its shape.
// Accepts formats like:
// - "emp001", "EMP001" -> "EMP001"
// - "e-42" -> "E-42"
func NormalizeEmployeeID(id string) (string, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return "", fmt.Errorf("employee id is required")
	}
	if !employeeRegex.MatchString(id) {
		return "", fmt.Errorf("invalid employee id %q. Use letters, digits, '-' or '_', starting with a letter", id)
	}
	return id, nil
}
