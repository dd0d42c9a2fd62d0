// =============================================================================
// CI Load Engine - Main Entry Point
// =============================================================================
//
// USAGE:
//   ciload generate  - Generate CI loads for the snapshots in the input directory
//   ciload tariffs   - Show the prioritized tariff list for a sample line
//   ciload version   - Display the application version
//
// LAYOUT:
//   cmd/       : Cobra command definitions
//   internal/  : Engine (fieldcodec, specialtariff, tariffs, assembler,
//                emitter, generator) and caller-side loaders and sinks
//   pkg/utils  : File discovery, archival, naming and run logs
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/ci-load-engine/cmd"
)

func main() {
	cmd.Execute()
}
