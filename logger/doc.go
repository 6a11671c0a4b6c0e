// Package logger provides structured logging for streamop using zerolog.
//
// Init installs the process-wide logger from a Config; everything else
// derives from it. Operators resolve their logger through Get, which returns
// a registered logger or a component-scoped global one, and tag it with
// ForOperator so every line names the operator instance it came from.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"   # json, console or pretty
//
// In console format the operator name is printed in brackets between the
// level and the message:
//
//	12:04:05.120 INF [tokenize] Operator started mode=parallel parallelism=4
package logger
