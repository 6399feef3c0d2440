package ledger

import (
	"strings"

	"go.dedis.ch/dvote/election/types"
)

// The ledger runtime embeds the human-readable rejection reason behind one of
// these delimiters inside an otherwise opaque failure message.
var revertMarkers = []string{
	"execution reverted:",
	"revert:",
	"revert ",
}

// genericReason is the fallback displayed when no structured reason can be
// extracted from the raw message.
const genericReason = "operation failed"

// ExtractReason searches a raw failure message for the structured revert
// reason carried by the ledger runtime. It returns the reason verbatim when
// one is found.
func ExtractReason(msg string) (string, bool) {
	for _, marker := range revertMarkers {
		pos := strings.Index(msg, marker)
		if pos < 0 {
			continue
		}

		reason := strings.TrimSpace(msg[pos+len(marker):])
		if reason != "" {
			return reason, true
		}
	}

	return "", false
}

// ClassifySimulation turns a dry run failure into a typed rejection. It is
// total: any non-nil error yields a types.SimulationRejected, worst case with
// the generic reason.
func ClassifySimulation(err error) types.SimulationRejected {
	reason, raw := classify(err)

	return types.SimulationRejected{Reason: reason, Raw: raw}
}

// ClassifySubmission turns a submission failure into a typed rejection. Like
// ClassifySimulation it never fails.
func ClassifySubmission(err error) types.SubmissionRejected {
	reason, raw := classify(err)

	return types.SubmissionRejected{Reason: reason, Raw: raw}
}

func classify(err error) (reason string, raw string) {
	if err == nil {
		return genericReason, ""
	}

	raw = err.Error()

	reason, found := ExtractReason(raw)
	if !found {
		reason = genericReason
	}

	return reason, raw
}
