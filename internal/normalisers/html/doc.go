// Package html provides a Normaliser for HTML contracts. It strips tags,
// scripts and styles and decodes entities.
package html
