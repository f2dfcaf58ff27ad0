// Package corpus reads and writes fixture corpora.
//
// A fixture is a C-like source file whose leading comment block carries its
// metadata:
//
//	// ID: 17
//	// Prompt: []
//	// Combination: cJSON_Parse, cJSON_Delete
//	// Strategy: rule-guided
//	// score: 0
//	// Quality: {"density":0,"unique_branches":{},"library_calls":[],"critical_calls":[],"visited":0}
//
// ParseHeader and RewriteHeader decode and update that block; RewriteHeader
// touches only the score and Quality values. Extractor recovers the ordered
// library calls of the fixture body, and Scan loads a whole corpus directory.
package corpus
