// Package cli parses the command line of the neosage command, validates user
// input and carries process-level concerns like exit codes.
package cli
