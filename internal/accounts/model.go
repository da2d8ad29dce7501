package accounts

// Account is one registered credential pair. The persisted JSON field names
// are part of the storage format and must not change.
//
// Passwords are stored verbatim. This mirrors the storage contract the rest
// of the system depends on; hardening it would change observable behavior.
type Account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Session is the single active authenticated account, mirrored across
// processes through the keystore. A record with IsAuthenticated=false is a
// tombstone and is treated as "no session".
type Session struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// Result reports the outcome of Register and Authenticate. Data conditions
// (bad credentials, duplicate username, missing accounts) are communicated
// here, never as errors.
type Result struct {
	Success bool
	Message string
}
