package report

import (
	"encoding/json"
	"io"

	"github.com/olliecrow/rec_availability_monitor/internal/availability"
)

// JSONDocument maps identifier to summary.
func JSONDocument(r availability.Report) map[string]availability.Summary {
	out := make(map[string]availability.Summary, len(r.Summaries))
	for _, s := range r.Summaries {
		out[s.ID] = s
	}
	return out
}

func WriteJSON(w io.Writer, r availability.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(JSONDocument(r))
}
