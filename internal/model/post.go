package model

type Post struct {
	UUIDBase
	Title    string `gorm:"size:255;not null" json:"title"`
	Content  string `gorm:"type:text;not null" json:"content"`
	AuthorID uint   `gorm:"index;type:bigint unsigned" json:"authorId"`
	Author   User   `gorm:"foreignKey:AuthorID" json:"-"`
	Tags     string `gorm:"size:255" json:"tags"`
	Upvotes  int    `gorm:"default:0" json:"likes"`
	Views    int    `gorm:"default:0" json:"views"`
}

func (Post) TableName() string {
	return "posts"
}
