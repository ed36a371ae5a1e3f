// Package files verifies the on-disk artifacts of a split run.
//
// A run that recognized N section kinds should leave N materialized files in
// its output directory, plus the gains summary when one was derived. Expected
// derives those file names from a section set, and Verifier compares them
// against what a directory actually holds, classifying each expectation as
// present, missing, or empty and flagging files nobody asked for.
//
// Example usage:
//
//	expected := files.Expected(set, true)
//	report, err := files.NewVerifier(logger).Verify(outDir, expected)
//	if err != nil {
//		return err
//	}
//	if !report.OK() {
//		return report.Err()
//	}
package files
