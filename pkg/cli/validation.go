// Package cli validates user-supplied command line input.
package cli

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var symbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

// ValidateSymbol checks that a ticker symbol looks legitimate before it
// reaches the data provider or a SQL query.
func ValidateSymbol(symbol string) error {
	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("invalid symbol %q: expected an uppercase ticker", symbol)
	}
	return nil
}

// ParseSymbols splits a comma-separated symbol list, normalizes case and
// validates every entry.
func ParseSymbols(list string) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	parts := strings.Split(list, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		symbol := strings.ToUpper(strings.TrimSpace(p))
		if symbol == "" {
			continue
		}
		if err := ValidateSymbol(symbol); err != nil {
			return nil, err
		}
		symbols = append(symbols, symbol)
	}
	return symbols, nil
}

// ValidateBatchID checks that a batch id is a well-formed UUID.
func ValidateBatchID(batchID string) error {
	if _, err := uuid.Parse(batchID); err != nil {
		return fmt.Errorf("invalid batch-id %q: %w", batchID, err)
	}
	return nil
}
