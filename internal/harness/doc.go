// Package harness runs conformance scenarios against the lifecycle engine.
//
// A scenario names a manifest, gives a fixture body and states what replaying
// it must produce. The harness extracts the calls, replays them, scores the
// result and evaluates the assertions.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	manifest: ../manifests/doc.cue
//	mode: strict
//	source: |
//	  Doc *d = Create();
//	  Destroy(d);
//	assertions:
//	  - type: ok
//	    expect: true
//	  - type: metric
//	    metric: visited
//	    value: 2
//	  - type: final_state
//	    var: d
//	    state: Released
//
// The manifest path is resolved relative to the scenario file.
//
// # Assertion Types
//
//   - ok, halted: the verdict flags equal expect
//   - violation: a violation of kind exists; call pins its index, count the
//     exact number of violations of that kind
//   - no_violations: the replay reported nothing
//   - final_state: variable var ends in state
//   - transition: the FSM edge was exercised, e.g. "Doc:Live->Released"
//   - branch: the branch key is among the unique branches
//   - metric: one of score, visited, density, branches, library_calls,
//     critical_calls equals value
//   - unknown_symbol: the function was reported as unknown
//
// # Deterministic Testing
//
// Replay is a pure function of manifest and source, so the canonical JSON
// snapshot of a result is stable and can be compared against golden files.
package harness
