// Package schemas holds the JSON Schemas shipped inside the binary.
package schemas

import _ "embed"

// ExperimentSchemaJSON is the schema for experiment YAML files.
//
//go:embed experiment.schema.json
var ExperimentSchemaJSON string
