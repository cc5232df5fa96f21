package gateway

import "time"

// Note is a remote-backed note with denormalized interaction counters.
type Note struct {
	NoteID        string    `gorm:"column:note_id;primaryKey;size:190;not null"`
	AuthorID      string    `gorm:"column:author_id;size:190;not null;index:idx_notes_author"`
	Title         string    `gorm:"column:title;size:320;not null"`
	Content       string    `gorm:"column:content;type:text;not null"`
	ImageURL      string    `gorm:"column:image_url;size:512"`
	LikesCount    int64     `gorm:"column:likes_count;not null;default:0"`
	CollectsCount int64     `gorm:"column:collects_count;not null;default:0"`
	CommentsCount int64     `gorm:"column:comments_count;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "notes"
}

// Profile is a remote user profile with denormalized follow counters.
type Profile struct {
	UserID         string    `gorm:"column:user_id;primaryKey;size:190;not null"`
	Email          string    `gorm:"column:email;size:320;not null;uniqueIndex:idx_profiles_email"`
	PasswordHash   string    `gorm:"column:password_hash;size:190;not null"`
	DisplayName    string    `gorm:"column:display_name;size:320;not null"`
	AvatarURL      string    `gorm:"column:avatar_url;size:512"`
	Bio            string    `gorm:"column:bio;type:text"`
	FollowersCount int64     `gorm:"column:followers_count;not null;default:0"`
	FollowingCount int64     `gorm:"column:following_count;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Profile) TableName() string {
	return "profiles"
}

// Like is a join row recording that a user liked a note. The composite
// primary key is the uniqueness constraint the toggle protocol relies on.
type Like struct {
	UserID    string    `gorm:"column:user_id;primaryKey;size:190;not null"`
	NoteID    string    `gorm:"column:note_id;primaryKey;size:190;not null;index:idx_likes_note"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Like) TableName() string {
	return "likes"
}

// Collect is a join row recording that a user collected a note.
type Collect struct {
	UserID    string    `gorm:"column:user_id;primaryKey;size:190;not null"`
	NoteID    string    `gorm:"column:note_id;primaryKey;size:190;not null;index:idx_collects_note"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Collect) TableName() string {
	return "collects"
}

// Follow is a join row recording that follower follows following.
type Follow struct {
	FollowerID  string    `gorm:"column:follower_id;primaryKey;size:190;not null"`
	FollowingID string    `gorm:"column:following_id;primaryKey;size:190;not null;index:idx_follows_following"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Follow) TableName() string {
	return "follows"
}

// Comment is a remote comment on a note.
type Comment struct {
	CommentID string    `gorm:"column:comment_id;primaryKey;size:190;not null"`
	NoteID    string    `gorm:"column:note_id;size:190;not null;index:idx_comments_note"`
	AuthorID  string    `gorm:"column:author_id;size:190;not null"`
	Content   string    `gorm:"column:content;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Comment) TableName() string {
	return "comments"
}

// Product is a remote shop listing.
type Product struct {
	ProductID   string    `gorm:"column:product_id;primaryKey;size:190;not null"`
	SellerID    string    `gorm:"column:seller_id;size:190;not null;index:idx_products_seller"`
	Title       string    `gorm:"column:title;size:320;not null"`
	Description string    `gorm:"column:description;type:text"`
	PriceCents  int64     `gorm:"column:price_cents;not null;default:0"`
	ImageURL    string    `gorm:"column:image_url;size:512"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Product) TableName() string {
	return "products"
}

// Message is a direct message between two users.
type Message struct {
	MessageID  string    `gorm:"column:message_id;primaryKey;size:190;not null"`
	SenderID   string    `gorm:"column:sender_id;size:190;not null;index:idx_messages_sender"`
	ReceiverID string    `gorm:"column:receiver_id;size:190;not null;index:idx_messages_receiver"`
	Content    string    `gorm:"column:content;type:text;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Message) TableName() string {
	return "messages"
}

// InteractionState captures a user's relationship to a note and its author.
type InteractionState struct {
	Liked     bool
	Collected bool
	Following bool
}
