package model

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// swagger:model Course
type Course struct {
	BaseModel
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	AuthorID    uint      `gorm:"index;type:bigint unsigned" json:"authorId"`
	Author      User      `gorm:"foreignKey:AuthorID" json:"-"`
	Published   bool      `gorm:"default:true" json:"published"`
	Problems    []Problem `gorm:"foreignKey:CourseID" json:"problems,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// swagger:model Problem
type Problem struct {
	BaseModel
	CourseID    uint       `gorm:"index;type:bigint unsigned;not null" json:"courseId"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Statement   string     `gorm:"type:text" json:"statement"`
	Difficulty  Difficulty `gorm:"type:enum('easy','medium','hard');default:'medium'" json:"difficulty"`
	Solution    string     `gorm:"type:text" json:"-"` // 题解正文，解锁前不得下发
	SolutionURL string     `gorm:"size:255" json:"-"`
	Order       int        `gorm:"default:0" json:"order"`
}

func (Problem) TableName() string {
	return "problems"
}
