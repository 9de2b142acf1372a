package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is an authored text entry, optionally grouped and optionally illustrated.
// PubDate is written once on insert and never updated.
type Post struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	PubDate  time.Time `gorm:"index;not null" json:"pub_date"`
	AuthorID uint      `gorm:"index;not null" json:"author_id"`
	GroupID  *uint     `gorm:"index" json:"group_id"`
	Image    string    `gorm:"size:255" json:"image"`
	Author   User      `gorm:"foreignKey:AuthorID" json:"author"`
	Group    *Group    `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	Comments []Comment `gorm:"foreignKey:PostID" json:"-"`
}

func (p Post) String() string { return p.Text }

// BeforeCreate stamps the publication date.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.PubDate.IsZero() {
		p.PubDate = time.Now()
	}
	return nil
}
