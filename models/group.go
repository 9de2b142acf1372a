package models

// Group is a community a post may belong to. Slug is the public identifier.
type Group struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Slug        string `gorm:"size:50;uniqueIndex;not null" json:"slug"`
	Posts       []Post `gorm:"foreignKey:GroupID" json:"-"`
}

func (g Group) String() string { return g.Title }
