package Models

import (
	"gorm.io/gorm"
)

// Permission levels checked by middleware.Verify.
const (
	PermissionTechnician = 1
	PermissionPlanner    = 2
	PermissionManager    = 3
)

type User struct {
	gorm.Model
	SiteID     uint   `json:"site_id" gorm:"index"`
	Name       string `json:"name"`
	Email      string `json:"email" gorm:"uniqueIndex;size:128"`
	Permission int    `json:"permission"`
}

// UserName resolves a display name for history descriptions. Missing users
// resolve to a placeholder rather than an error.
func UserName(db *gorm.DB, id *uint) string {
	if id == nil || *id == 0 {
		return "Unassigned"
	}
	var user User
	if err := db.Select("id", "name").First(&user, *id).Error; err != nil {
		return "Unknown user"
	}
	return user.Name
}
