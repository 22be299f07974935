/*
Package log provides atomstore's structured logging, wrapping zerolog with
a global Logger, level/format configuration via Init, and a handful of
context-logger helpers (WithComponent, WithSubject, WithAgent) for
attaching resource/agent identifiers to a scoped child logger.

Logs default to a plain stderr writer so packages that log before main
calls Init (notably in tests) don't hit a zero-value Logger.
*/
package log
