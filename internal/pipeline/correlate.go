package pipeline

import (
	"strings"

	"github.com/joseph-ayodele/filings-tracker/constants"
	"github.com/joseph-ayodele/filings-tracker/internal/entity"
	"github.com/joseph-ayodele/filings-tracker/internal/filename"
)

// Correlate joins the three stage results with the filename-derived fields,
// one record per id in selectedIDs and in that order. Missing stage values
// become constants.None. A blank fine amount is also constants.None, so
// "no fine levied" and "no answer" read the same.
func Correlate(date, category, fine entity.StageResult, selectedIDs []string) []entity.CombinedRecord {
	out := make([]entity.CombinedRecord, 0, len(selectedIDs))
	for _, id := range selectedIDs {
		fields := filename.Fields(id)
		out = append(out, entity.CombinedRecord{
			DocumentID:  id,
			FilerCode:   fields.FilerCode,
			FilingDate:  valueOrNone(date, id),
			Category:    valueOrNone(category, id),
			FinedAmount: fineOrNone(fine, id),
			UploadDate:  fields.UploadDate,
		})
	}
	return out
}

func valueOrNone(r entity.StageResult, id string) string {
	if v, ok := r.Lookup(id); ok {
		return v
	}
	return constants.None
}

func fineOrNone(r entity.StageResult, id string) string {
	v, ok := r.Lookup(id)
	if !ok || strings.TrimSpace(v) == "" {
		return constants.None
	}
	return v
}
