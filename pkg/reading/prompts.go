package reading

import (
	"fmt"
	"strings"
)

// Synthetic user turns. Concept names are the only capitalised words in a
// tutoring request.

func tutoringRequestText(concepts []string) string {
	return fmt.Sprintf(
		"prerequisite tutoring requested for: %s\n"+
			"teach me only these prerequisite concepts, one at a time, and check my understanding as you go. "+
			"do not explain the document itself yet.",
		strings.Join(concepts, ", "),
	)
}

func readingKickoffText(docType DocType) string {
	if docType == DocTypeHumanities {
		return "i am ready to read the document. give me a deep skim report first: " +
			"the central argument, how each section supports it, and the passages worth reading closely."
	}
	return "i am ready to read the document. give me its logic map first: " +
		"the structure of the material, how each part depends on the previous ones, and where the key results are."
}
