// Package component defines the lifecycle contract shared by streamop
// operators and the registry that starts and stops them.
//
// A Registry starts components in registration order and stops them in
// reverse order, so a downstream operator registered after its upstream is
// stopped first and its bulk run sees no further input.
package component
