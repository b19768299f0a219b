package models

// Friendship represents an established friendship between two users.
// To avoid duplicates and simplify queries, UserID1 is always less than UserID2.
type Friendship struct {
	BaseModel
	UserID1 uint `gorm:"not null;uniqueIndex:idx_friendship_users" json:"userId1"`
	UserID2 uint `gorm:"not null;uniqueIndex:idx_friendship_users" json:"userId2"`
}

// TableName specifies the table name for the Friendship model.
func (Friendship) TableName() string {
	return "friendships"
}

// EnsureCanonicalOrder swaps the pair so UserID1 holds the smaller id.
// Call it before creating a Friendship record.
func (f *Friendship) EnsureCanonicalOrder() {
	if f.UserID1 > f.UserID2 {
		f.UserID1, f.UserID2 = f.UserID2, f.UserID1
	}
}
