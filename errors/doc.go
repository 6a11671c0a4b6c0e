// Package errors provides the structured error type used across streamop.
// Every failure surfaced by an operator carries a machine-readable code so
// pipeline runtimes can branch on it with HasCode or errors.As.
package errors
