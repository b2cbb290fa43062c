// ABOUTME: Version management data model
// ABOUTME: Version records and major.minor label arithmetic for checkins

package version

import "time"

// Record describes one version created by a checkin
type Record struct {
	NodeID    string    // Node the version belongs to
	Label     string    // major.minor label, e.g. "1.3"
	Major     bool      // Whether the checkin requested a major version
	Comment   string    // Checkin comment
	CreatedBy string    // User that created the version
	CreatedAt time.Time // Version creation time
}

// Label is a parsed major.minor version label
type Label struct {
	Major int
	Minor int
}

// Initial is the label of a node that has never been versioned
var Initial = Label{}
