// Package core is the catalog search application, independent of any
// transport. The web server and the CLI both drive a [Service].
//
// # Flow
//
//  1. [Service.Upload] sanitizes the file name, waits for an upload slot,
//     parses the file with the catalog extractor and swaps the result into
//     the store. The previous dataset survives any failure.
//  2. [Service.Filters] returns the facet options of the loaded dataset.
//  3. [Service.Search] applies a [Query]: filters first, then keywords.
//  4. [Service.Export] writes the same selection as .xlsx or .csv.
//  5. [Service.Clear] drops the dataset.
//
// Uploads and clears are written to a history recorder (see package
// history). The dataset itself lives only in memory.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError].
// Each message has a code for support reference: VAL (validation), FILE
// (file handling), DATA (dataset and query state), UPL (upload slots and
// cancellation), REQ (malformed requests) and RATE (throttling).
package core
