// Package logging sets up structured JSON logging for surveydash.
//
// Logs go to a size-rotated file under ~/.surveydash/logs/ and, outside of
// MCP stdio mode, are mirrored to stderr. The viewer reads those files back
// for the logs command.
package logging
