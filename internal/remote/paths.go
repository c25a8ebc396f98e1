package remote

import "fmt"

// CoverageIndexPath is the single shared aggregate index document at the
// repository root.
const CoverageIndexPath = "coverage-index.json"

// ImagePath returns the deterministic remote path for one capture image.
// Sequence numbers are zero-padded to six digits so paths sort with sequence
// order.
func ImagePath(sessionID string, sequenceNum int64) string {
	return fmt.Sprintf("sessions/%s/images/%06d.jpg", sessionID, sequenceNum)
}

// DataCSVPath returns the remote path for a session's data CSV.
func DataCSVPath(sessionID string) string {
	return fmt.Sprintf("sessions/%s/data.csv", sessionID)
}

// MetadataPath returns the remote path for a session's metadata document.
func MetadataPath(sessionID string) string {
	return fmt.Sprintf("sessions/%s/metadata.json", sessionID)
}
