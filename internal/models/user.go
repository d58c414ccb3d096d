package models

import "gorm.io/gorm"

// User is the campus account record (PostgreSQL). Only display fields are read here.
type User struct {
	gorm.Model  `json:"-"`
	FirebaseUID string `json:"uid" gorm:"uniqueIndex"` // Firebase UID, the identity used across services
	DisplayName string `json:"displayName"`
	Email       string `json:"email" gorm:"uniqueIndex"`
	PhotoURL    string `json:"photoURL"`
	CampusID    string `json:"campusId" gorm:"index"`
}

// UserProfile is the denormalized actor snapshot stored on notifications
type UserProfile struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// ToProfile converts a user row into the actor snapshot
func (u *User) ToProfile() UserProfile {
	return UserProfile{
		UID:         u.FirebaseUID,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
	}
}
