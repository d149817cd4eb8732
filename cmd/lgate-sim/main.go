// Command lgate-sim runs the gateway core on a host. The Ethernet port is a
// linux TAP interface and the radio port a UDP multicast group shared with
// other simulated nodes.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
