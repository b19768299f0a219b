package models

// FriendRequestStatus tracks the lifecycle of a friend request.
type FriendRequestStatus string

const (
	FriendRequestStatusPending  FriendRequestStatus = "pending"
	FriendRequestStatusAccepted FriendRequestStatus = "accepted"
	FriendRequestStatusRejected FriendRequestStatus = "rejected"
)

// FriendRequest records a pending or resolved request between two users.
type FriendRequest struct {
	BaseModel
	RequesterID uint                `gorm:"not null;index:idx_friend_request_users" json:"requesterId"`
	RecipientID uint                `gorm:"not null;index:idx_friend_request_users" json:"recipientId"`
	Status      FriendRequestStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
}

// TableName specifies the table name for the FriendRequest model.
func (FriendRequest) TableName() string {
	return "friend_requests"
}

// FriendRequestWithRequester pairs a request with the requester's public
// profile for listing endpoints.
type FriendRequestWithRequester struct {
	FriendRequest
	Requester *UserBasicInfo `json:"requester"`
}
