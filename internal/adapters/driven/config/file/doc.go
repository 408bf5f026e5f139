// Package file provides file-based configuration adapters.
//
// Adapters:
//   - Load/Parse: TOML configuration resolved into domain.Settings
//   - PromptStore: user-editable prompt templates for answer synthesis
package file
