package domain

// AuditUser identifies the actor a history entry is attributed to. It is
// always supplied by the caller; the audit engine never infers identity.
type AuditUser struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}
