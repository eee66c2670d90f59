// Package main hosts the mediascan CLI entrypoint and command graph.
//
// The Cobra command tree imports a music library into the catalogue, runs the
// re-analysis pipeline over catalogued files, and reports catalogue status.
// Configuration resolution, logger construction, and store access are shared
// through commandContext so subcommands only describe their own flags and
// output.
//
// Keep this package lean: new behaviour belongs in the internal packages first
// and is surfaced here through a command or flag.
package main
