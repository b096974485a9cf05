package articles

import "time"

const maxTitleLength = 150

// Article is the persisted content unit. AuthorID never changes after
// creation; ViewsCount and LikesCount only move through their dedicated
// server-side paths.
type Article struct {
	ID           string    `gorm:"column:id;primaryKey;size:36;not null"`
	AuthorID     string    `gorm:"column:author_id;size:36;not null;index"`
	CreationTime time.Time `gorm:"column:creation_time;autoCreateTime"`
	UpdateTime   time.Time `gorm:"column:update_time;autoUpdateTime"`
	Title        string    `gorm:"column:title;size:150;not null"`
	BodyJSON     string    `gorm:"column:body_json;type:text;not null;default:'[]'"`
	IsPublished  bool      `gorm:"column:is_published;not null;default:false"`
	ViewsCount   int64     `gorm:"column:views_count;not null;default:0"`
	LikesCount   int64     `gorm:"column:likes_count;not null;default:0"`
}

// TableName exposes the table backing articles.
func (Article) TableName() string {
	return "articles"
}
