package models

import "time"

// Platform constants
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)

// Device is a registered push endpoint owned by exactly one user (MongoDB)
type Device struct {
	ID         string    `json:"id" bson:"_id"`
	UID        string    `json:"-" bson:"uid"`
	FCMToken   string    `json:"-" bson:"fcmToken"`
	DeviceName string    `json:"deviceName,omitempty" bson:"deviceName,omitempty"`
	Platform   string    `json:"platform" bson:"platform"`
	LastSeenAt time.Time `json:"lastSeenAt" bson:"lastSeenAt"`
	Disabled   bool      `json:"disabled" bson:"disabled"`
}

// RegisterDeviceRequest is the request body for registering or refreshing a device token
type RegisterDeviceRequest struct {
	FCMToken   string `json:"fcmToken" validate:"required,min=10,max=4096"`
	DeviceName string `json:"deviceName,omitempty" validate:"omitempty,max=120"`
	Platform   string `json:"platform" validate:"required,oneof=ios android web"`
}
