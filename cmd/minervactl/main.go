// Command minervactl runs the topic extractor, formatter and prompt builder
// offline, exports topic lists and summarises the generation event log.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
