// Package normalisers extracts contract text from the file formats
// accepted by analyze and watch. Each sub-package handles one family of
// MIME types; Registry picks the best match for a file.
package normalisers
