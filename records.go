package records

import _ "embed"

// Readme is served as the description of the status API.
//
//go:embed README.md
var Readme string
