// Package core implements the bulk student import pipeline.
//
// An import moves through four steps:
//
//  1. [ParseCSV] reads the upload into a [Sheet], rejecting malformed files
//     with CSV_PARSE_ERROR and files without data rows with EMPTY_CSV.
//  2. [ImportSchema.CheckColumns] makes sure every required column exists.
//  3. [RowValidator.ValidateAll] checks every row and collects all field
//     problems per row into a [RowError].
//  4. [Importer] either reports the result (dry run), rejects the whole batch
//     when any row is invalid, or hands the validated students to a
//     [StudentCommitter].
//
// The package has no transport or storage dependencies. The HTTP layer and
// the rosterctl CLI both drive it through [Importer].
package core
