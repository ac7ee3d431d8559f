// Package file keeps user configuration under ~/.contract-agent: the TOML
// settings file read by ConfigStore and the prompt templates served by
// PromptStore.
package file
