package models

import "time"

// Club member roles
const (
	ClubRoleOwner  = "owner"
	ClubRoleAdmin  = "admin"
	ClubRoleMember = "member"
)

// Club is a campus club (PostgreSQL)
type Club struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	Name      string    `json:"name"`
	CampusID  string    `json:"campusId" gorm:"index"`
	CreatedAt time.Time `json:"createdAt"`
}

// ClubMember links a user to a club with a role (PostgreSQL)
type ClubMember struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ClubID    string    `json:"clubId" gorm:"size:64;index;uniqueIndex:idx_club_member"`
	UID       string    `json:"uid" gorm:"size:128;index;uniqueIndex:idx_club_member"`
	Role      string    `json:"role" gorm:"size:20;index"`
	CreatedAt time.Time `json:"createdAt"`
}
