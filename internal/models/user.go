package models

// User represents a registered account. The friend graph around it lives in
// the FriendRequest and Friendship tables.
type User struct {
	BaseModel
	Name         string `gorm:"type:varchar(100);not null" json:"name"`
	Email        string `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`
	ImageURL     string `gorm:"type:varchar(255)" json:"imageUrl,omitempty"`
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// UserBasicInfo holds the minimal public profile used in friend-request
// listings and the chat header.
type UserBasicInfo struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// BasicInfo projects the public fields of the user.
func (u *User) BasicInfo() *UserBasicInfo {
	return &UserBasicInfo{ID: u.ID, Name: u.Name, Email: u.Email, ImageURL: u.ImageURL}
}
