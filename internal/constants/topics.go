package constants

import (
	_ "embed"
	"strings"
)

//go:embed topics.txt
var topicsFile string

// SampleTopics contains topic suggestions shown by the web form
// Loaded from topics.txt (one topic per line)
var SampleTopics []string

func init() {
	// Parse topics from embedded file
	lines := strings.SplitSeq(topicsFile, "\n")
	for line := range lines {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			SampleTopics = append(SampleTopics, line)
		}
	}
}
