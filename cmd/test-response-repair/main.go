// Test program to demonstrate model response parsing and repair
// This shows fence stripping and truncated-array recovery working
package main

import (
	"fmt"
	"strings"

	"github.com/lnup/eventscout/internal/discovery"
)

func main() {
	fmt.Println("=== Model Response Repair Test ===")
	fmt.Println()

	samples := map[string]string{
		"clean array": `[{"title":"Pub Quiz","date":"2026-09-04"}]`,
		"fenced with prose": "Hier sind die Events:\n```json\n" +
			`[{"title":"Karaoke Abend","date":"2026-09-05"},{"title":"Weinprobe","date":"2026-09-06"}]` +
			"\n```\nViel Spaß!",
		"truncated mid-object": `[{"title":"Flohmarkt","date":"2026-09-07"},{"title":"Open Mic","da`,
		"no array at all":      "Leider konnte ich keine Events finden.",
	}

	for name, raw := range samples {
		fmt.Printf("Testing: %s\n", name)
		fmt.Println(strings.Repeat("-", 60))

		result := discovery.ParseArray(raw)
		switch result.Outcome {
		case discovery.OutcomeClean:
			fmt.Printf("  Parsed cleanly: %d elements\n", len(result.Elements))
		case discovery.OutcomeRepaired:
			fmt.Printf("  Repaired truncated response: %d elements recovered\n", len(result.Elements))
		case discovery.OutcomeFailed:
			fmt.Println("  Unparseable, would be treated as zero events")
		}
		for _, el := range result.Elements {
			fmt.Printf("    %s\n", string(el))
		}
		fmt.Println()
	}
}
