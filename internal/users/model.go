package users

import "time"

// User tracks per-account usage of the analysis pipeline. There is no login
// surface; users are identified by the email supplied with an upload, and a
// record is created lazily on first use.
type User struct {
	ID            string
	Email         string
	TotalAnalyses int
	APICalls      int
	CreatedAt     time.Time
}
