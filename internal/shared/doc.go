// Package shared holds cross-cutting helpers that belong to no single
// domain package. Today that is test tooling only; runtime code lives
// with its owners.
//
// # Testing helpers
//
// The testutil subpackage carries:
//
//   - A buffered slog handler for asserting on log output
//   - Dump fixtures covering every recognized section kind
//
// Typical use:
//
//	func TestSegmenter(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//
//	    // run the code under test with logger, then:
//	    assert.True(t, logs.ContainsMessage("dump segmented"))
//	}
//
// Keep this package free of business logic and of imports from other
// internal packages; everything under internal/ may depend on it.
package shared
