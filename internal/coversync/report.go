package coversync

import (
	"github.com/KMcClain23/WarriorMomma/internal/fileutil"
)

// DefaultReportFile is where the missing-covers report is written by default.
const DefaultReportFile = "covers_missing.json"

// WriteMissingReport writes missing as a JSON array to path, replacing any
// previous report. An empty list is written as [].
func WriteMissingReport(path string, missing []Missing) error {
	if missing == nil {
		missing = []Missing{}
	}
	_, err := fileutil.WriteJSONFile(missing, path, true)
	return err
}
