package db

import (
	"time"
)

// Source maps cannibal.sources. A source is one upstream channel/feed;
// platform_id is the stable numeric id assigned by the messaging platform,
// absent for sources only ever seen by display name.
type Source struct {
	SourceID   int64     `gorm:"column:source_id;primaryKey;autoIncrement"`
	Name       string    `gorm:"column:name;type:text;not null;unique"`
	PlatformID *int64    `gorm:"column:platform_id;type:bigint;unique"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Source) TableName() string { return "cannibal.sources" }

// Post maps cannibal.posts. (source_id, message_id) is the idempotency key:
// exactly one row per logical upstream event, however many times it is
// delivered. The outcome columns stay NULL until one worker completes the
// workflow and stamps processed_at.
type Post struct {
	PostID        int64      `gorm:"column:post_id;primaryKey;autoIncrement"`
	PostUUID      string     `gorm:"column:post_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	SourceID      int64      `gorm:"column:source_id;type:bigint;not null;uniqueIndex:ux_posts_source_message"`
	MessageID     int64      `gorm:"column:message_id;type:bigint;not null;uniqueIndex:ux_posts_source_message"`
	Text          string     `gorm:"column:text;type:text;not null"`
	RewrittenText *string    `gorm:"column:rewritten_text;type:text"`
	IsDuplicate   *bool      `gorm:"column:is_duplicate;type:boolean"`
	Similarity    *float64   `gorm:"column:similarity;type:double precision"`
	DuplicateOf   *string    `gorm:"column:duplicate_of;type:text"`
	ProcessedAt   *time.Time `gorm:"column:processed_at;type:timestamptz"`
	CreatedAt     time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Post) TableName() string { return "cannibal.posts" }

// IngestKey maps cannibal.ingest_keys. API credentials for the HTTP intake;
// only the bcrypt hash of the secret is stored.
type IngestKey struct {
	KeyID      int64      `gorm:"column:key_id;primaryKey;autoIncrement"`
	Name       string     `gorm:"column:name;type:text;not null;unique"`
	SecretHash string     `gorm:"column:secret_hash;type:text;not null"`
	CreatedAt  time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	LastUsedAt *time.Time `gorm:"column:last_used_at;type:timestamptz"`
}

func (IngestKey) TableName() string { return "cannibal.ingest_keys" }

func autoMigrateModels() []any {
	return []any{
		&Source{},
		&Post{},
		&IngestKey{},
	}
}
