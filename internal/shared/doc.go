// Package shared holds code used by more than one package that belongs to
// no single layer.
//
// The testutil subpackage provides a capturing slog handler with assertions
// and generators for index input and weight files in CSV and XLSX form:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    input, weights := testutil.DefaultIndexFixture().WriteCSV(t, t.TempDir())
//	    ...
//	    testutil.AssertNoErrors(t, logs)
//	}
package shared
