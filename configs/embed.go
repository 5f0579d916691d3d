// Package configs holds the default configuration files compiled into the
// binary.
package configs

import _ "embed"

// Assessments is the default assessment report layout.
//
//go:embed assessments.yaml
var Assessments []byte
