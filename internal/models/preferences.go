package models

import (
	"fmt"
	"time"
)

// QuietHours is a daily window, in the user's timezone, during which pushes are held back
type QuietHours struct {
	Start    string `json:"start" bson:"start" validate:"required,datetime=15:04"`
	End      string `json:"end" bson:"end" validate:"required,datetime=15:04"`
	Timezone string `json:"timezone,omitempty" bson:"timezone,omitempty" validate:"omitempty,timezone"`
}

// Contains reports whether t falls inside the window. Windows may wrap midnight.
func (q *QuietHours) Contains(t time.Time) (bool, error) {
	start, err := time.Parse("15:04", q.Start)
	if err != nil {
		return false, fmt.Errorf("invalid quiet hours start %q: %w", q.Start, err)
	}
	end, err := time.Parse("15:04", q.End)
	if err != nil {
		return false, fmt.Errorf("invalid quiet hours end %q: %w", q.End, err)
	}
	loc := time.UTC
	if q.Timezone != "" {
		if loc, err = time.LoadLocation(q.Timezone); err != nil {
			return false, fmt.Errorf("invalid quiet hours timezone %q: %w", q.Timezone, err)
		}
	}

	local := t.In(loc)
	minute := local.Hour()*60 + local.Minute()
	from := start.Hour()*60 + start.Minute()
	to := end.Hour()*60 + end.Minute()

	switch {
	case from == to:
		return false, nil
	case from < to:
		return minute >= from && minute < to, nil
	default:
		return minute >= from || minute < to, nil
	}
}

// Preferences holds a user's push settings (MongoDB)
type Preferences struct {
	UID         string                    `json:"-" bson:"_id"`
	PushEnabled bool                      `json:"pushEnabled" bson:"pushEnabled"`
	PushTypes   map[NotificationType]bool `json:"pushTypes" bson:"pushTypes"`
	QuietHours  *QuietHours               `json:"quietHours,omitempty" bson:"quietHours,omitempty"`
	UpdatedAt   time.Time                 `json:"updatedAt" bson:"updatedAt"`
}

// DefaultPreferences is what a user without a stored record gets: everything on
func DefaultPreferences(uid string) *Preferences {
	return &Preferences{
		UID:         uid,
		PushEnabled: true,
		PushTypes:   map[NotificationType]bool{},
	}
}

// TypeEnabled treats a type missing from the map as enabled
func (p *Preferences) TypeEnabled(t NotificationType) bool {
	enabled, ok := p.PushTypes[t]
	return !ok || enabled
}

// UpdatePreferencesRequest defines the request body for updating push settings
type UpdatePreferencesRequest struct {
	PushEnabled *bool           `json:"pushEnabled" validate:"required"`
	PushTypes   map[string]bool `json:"pushTypes,omitempty" validate:"omitempty,dive,keys,oneof=follow club_invite club_join_request post_like comment_like comment_reply post_comment announcement system,endkeys"`
	QuietHours  *QuietHours     `json:"quietHours,omitempty" validate:"omitempty"`
}
