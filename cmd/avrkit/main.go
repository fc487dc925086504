// avrkit runs the cooperative task scheduler on the host with a command
// console on stdin/stdout or a serial port.
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
