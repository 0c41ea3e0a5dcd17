// Command sarchive watches a batch job scheduler's spool directory and
// archives each submitted job's script and environment before the
// scheduler reclaims the spool entry.
package main

import (
	"github.com/hpc-sre/sarchive/internal/cli"
)

func main() {
	cli.Execute()
}
