// digestcheck is a coordinator tool: it builds the rainbow table for a
// parameter set and validates participant-supplied digests against it.
//
//	digestcheck -challenges 5 <digest> [<digest>...]
package main

import (
	"flag"
	"fmt"
	"os"

	"binstudy/domain/core"
	"binstudy/domain/experiment"
)

func main() {
	challengeCount := flag.Int("challenges", experiment.DefaultChallengeCount, "challenges per study")
	flag.Parse()

	params := experiment.DefaultParams()
	params.ChallengeCount = *challengeCount

	table, err := experiment.BuildRainbowTable(params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot build table: %v\n", err)
		os.Exit(2)
	}
	fmt.Printf("table holds %d valid digests for %d challenges per study\n", table.Size(), params.ChallengeCount)

	invalid := 0
	for _, arg := range flag.Args() {
		if table.Contains(core.Digest(arg)) {
			fmt.Printf("%s  VALID\n", arg)
		} else {
			fmt.Printf("%s  INVALID\n", arg)
			invalid++
		}
	}
	if invalid > 0 {
		os.Exit(1)
	}
}
