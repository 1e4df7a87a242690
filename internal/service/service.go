// Package service provides business logic for the job board.
package service

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is shared by all services; validator.Validate caches struct metadata
// and is safe for concurrent use.
var validate = validator.New()

// trim returns s without surrounding whitespace.
func trim(s string) string {
	return strings.TrimSpace(s)
}
