// Package harness runs translation scenarios: suites of expression
// documents translated under one set of options, checked against expected
// SQL, nullability and error codes, and snapshotted to golden files.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: null-semantics
//	description: "What this scenario validates"
//	options: options.yaml            # optional, .yaml or .cue
//	cases:
//	  - document: docs/equality.yaml # .yaml or .cue expression document
//	    expect:
//	      sql: "t.a = t.b"
//	      nullable: false
//	      truth:                     # rewritten tree under three-valued logic
//	        - {row: {a: 1, b: 2}, want: "FALSE"}
//	  - inline:
//	      name: unmapped
//	      expression: {constant: {value: 1}}
//	    expect:
//	      error: UNRESOLVED_TYPE_MAPPING
//	assertions:
//	  - type: sql_contains
//	    case: equality
//	    text: "IS NULL"
//	  - type: failure_count
//	    count: 1
//	  - type: journal_state
//	    case: equality
//	    expect: {nullable: false, seq: 1}
//
// Document paths and the options path are relative to the scenario file.
//
// # Deterministic Runs
//
// Run gives every scenario a fresh provider and an in-memory journal with
// sequential record IDs and a deterministic clock, so outcomes, seq
// numbers and golden snapshots are identical across runs.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/nulls.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
