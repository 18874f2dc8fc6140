package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Mentor  UserRole = "mentor"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name        string    `gorm:"size:100;not null" json:"name"`
	Username    string    `gorm:"size:100;unique;not null" json:"username"`
	Email       string    `gorm:"size:100;unique;not null" json:"email"`
	Password    string    `gorm:"size:100;not null" json:"-"`
	Role        UserRole  `gorm:"type:enum('student','mentor','admin');default:'student'" json:"role"`
	Institution string    `gorm:"size:150" json:"institution"`
	Country     string    `gorm:"size:100" json:"country"`
	Avatar      string    `gorm:"size:255" json:"avatar"`
	Disabled    bool      `gorm:"default:false" json:"disabled"`
	LastLogin   time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastLogin"`
	LastSeen    time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}

// PublicProfile 榜单展示用的公开档案字段
type PublicProfile struct {
	ID          uint     `json:"id"`
	DisplayName string   `json:"displayName"`
	Username    string   `json:"username"`
	Institution string   `json:"institution"`
	Country     string   `json:"country"`
	AvatarURL   string   `json:"avatarUrl"`
	Role        UserRole `json:"role"`
}
