// Package domain models site location records and the rules used to import
// them into a hierarchical location store.
//
// # Input Format
//
// Imports consume UTF-8 CSV with a header row. Three columns are required,
// matched case-sensitively:
//
//	name,city,state
//	NYC01-DC,New York,NJ
//	DEN02-BR,Denver,CO
//
// Additional columns are ignored. A leading byte order mark is tolerated.
//
// # Hierarchy
//
// Every imported site produces up to three locations:
//
//	State  (top level, keyed by name)
//	└── City  (keyed by name within its state)
//	    └── Site  (keyed by name, type "Data Center" or "Branch")
//
// # State Names
//
// A fixed table rewrites a handful of postal abbreviations to full names
// before lookup (CO, VA, CA, NJ, IL). Anything else, including other valid
// abbreviations, is used verbatim. See [NormalizeState].
//
// # Site Classification
//
// The site type comes from the name suffix: "-DC" is a data center and
// "-BR" is a branch. Rows with any other suffix are skipped before any
// location is written. See [ClassifySite].
package domain
