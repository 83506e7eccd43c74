// Package logging provides opt-in file-based logging with rotation for ctx.
// When --verbose is set, structured JSON logs are written to
// ~/.ctx/logs/ctx.log in addition to the CLI's normal stdout/stderr output.
//
// By default (without --verbose), logging stays minimal and goes to stderr
// only.
package logging
