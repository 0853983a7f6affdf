// Package types provides delegation types for bounded permission grants
package types

import (
	"fmt"
	"time"
)

// ClockTime is a wall-clock time of day with minute resolution
type ClockTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseClockTime parses "HH:MM" into a ClockTime
func ParseClockTime(s string) (ClockTime, error) {
	var ct ClockTime
	if _, err := fmt.Sscanf(s, "%d:%d", &ct.Hour, &ct.Minute); err != nil {
		return ClockTime{}, fmt.Errorf("parse clock time %q: %w", s, err)
	}
	if ct.Hour < 0 || ct.Hour > 23 || ct.Minute < 0 || ct.Minute > 59 {
		return ClockTime{}, fmt.Errorf("clock time %q out of range", s)
	}
	return ct, nil
}

// Minutes returns minutes since midnight
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

// TimeWindow restricts delegation use to a daily clock-time range on a set
// of weekdays. Timestamps are normalized to UTC before evaluation; callers
// operating in a principal-local zone must convert before building the
// request context.
type TimeWindow struct {
	Start    ClockTime      `json:"start"`
	End      ClockTime      `json:"end"`
	Weekdays []time.Weekday `json:"weekdays"`
}

// Contains reports whether ts falls inside the window. The weekday must be
// allowed and the clock time must lie in [Start, End] inclusive.
func (w *TimeWindow) Contains(ts time.Time) bool {
	utc := ts.UTC()

	dayOK := len(w.Weekdays) == 0
	for _, d := range w.Weekdays {
		if utc.Weekday() == d {
			dayOK = true
			break
		}
	}
	if !dayOK {
		return false
	}

	minutes := utc.Hour()*60 + utc.Minute()
	return minutes >= w.Start.Minutes() && minutes <= w.End.Minutes()
}

// DelegationConstraints bound where and how a delegated permission may be
// exercised. Nil/zero fields impose no constraint.
type DelegationConstraints struct {
	MaxAmount    *float64    `json:"maxAmount,omitempty"`
	DepartmentID string      `json:"departmentId,omitempty"`
	Window       *TimeWindow `json:"window,omitempty"`
}

// RequestContext describes the request a delegated permission is being
// exercised against.
type RequestContext struct {
	Amount       *float64  `json:"amount,omitempty"`
	DepartmentID string    `json:"departmentId,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// UsageRecord is one exercise of a delegation
type UsageRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	Context   RequestContext `json:"context"`
}

// ExtensionRecord is one expiry extension applied to a delegation
type ExtensionRecord struct {
	ExtendedAt time.Time `json:"extendedAt"`
	OldExpiry  time.Time `json:"oldExpiry"`
	NewExpiry  time.Time `json:"newExpiry"`
}

// Delegation is a time/usage/context-bounded grant of one specific
// permission from one principal to another. Delegations are never deleted;
// revoked and expired ones are retained for audit.
type Delegation struct {
	ID            string                `json:"id"`
	FromPrincipal string                `json:"fromPrincipal"`
	ToPrincipal   string                `json:"toPrincipal"`
	Permission    string                `json:"permission"`
	Constraints   DelegationConstraints `json:"constraints"`

	UsageLimit   int           `json:"usageLimit"` // 0 = unlimited
	UsageCount   int           `json:"usageCount"`
	UsageHistory []UsageRecord `json:"usageHistory,omitempty"`

	ExtensionHistory []ExtensionRecord `json:"extensionHistory,omitempty"`

	DelegatedAt time.Time `json:"delegatedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Reason      string    `json:"reason,omitempty"`

	Active           bool       `json:"active"`
	RevokedAt        *time.Time `json:"revokedAt,omitempty"`
	RevocationReason string     `json:"revocationReason,omitempty"`
}

// IsActive derives the live state at the given instant: not revoked, not
// expired, and under the usage limit when one is set. The state is computed
// on every check rather than stored, so expiry and exhaustion need no
// background transition job.
func (d *Delegation) IsActive(now time.Time) bool {
	if !d.Active {
		return false
	}
	if !now.Before(d.ExpiresAt) {
		return false
	}
	if d.UsageLimit > 0 && d.UsageCount >= d.UsageLimit {
		return false
	}
	return true
}

// Revoked reports whether the delegation was explicitly revoked
func (d *Delegation) Revoked() bool {
	return d.RevokedAt != nil
}
