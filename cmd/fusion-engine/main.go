// Command fusion-engine runs the military-aviation OSINT fusion
// pipeline: upstream aggregation, behavioral profiling, formation and
// proximity detection, trajectory prediction, geofencing, and alert
// generation, served through a read-only query API.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
