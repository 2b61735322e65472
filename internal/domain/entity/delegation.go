package entity

import "time"

// Delegation is a time-boxed, scope-limited grant of one user's
// approval authority to another. Only the delegator may revoke it;
// revocation is terminal.
type Delegation struct {
	ID          string           `json:"id"`
	DelegatorID string           `json:"delegator_id"`
	DelegateID  string           `json:"delegate_id"`
	StartDate   time.Time        `json:"start_date"`
	EndDate     time.Time        `json:"end_date"`
	Scope       DelegationScope  `json:"scope"`
	Motive      string           `json:"motive"`
	Status      DelegationStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	RevokedAt   *time.Time       `json:"revoked_at,omitempty"`
	RevokeReason string          `json:"revoke_reason,omitempty"`
}

// DisplayStatus labels a stored-active delegation whose end date has
// passed as expired. Expiry is computed at read time, never swept.
func (d *Delegation) DisplayStatus(now time.Time) DelegationStatus {
	if d.Status == DelegationActive && now.After(endOfDay(d.EndDate)) {
		return DelegationExpired
	}
	return d.Status
}

func endOfDay(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
