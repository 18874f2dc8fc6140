package repository

import (
	"mentor_site_backend/internal/model"

	"gorm.io/gorm"
)

type BallotRepository struct {
	DB *gorm.DB
}

func NewBallotRepository(db *gorm.DB) *BallotRepository {
	return &BallotRepository{DB: db}
}

// CreateVote 一次性投票，冲突即"已投过"，由调用方识别
func (r *BallotRepository) CreateVote(vote *model.ProblemVote) error {
	return r.DB.Create(vote).Error
}

func (r *BallotRepository) HasVoted(problemID, userID uint) bool {
	if userID == 0 {
		return false
	}
	var count int64
	r.DB.Model(&model.ProblemVote{}).
		Where("problem_id = ? AND user_id = ?", problemID, userID).
		Count(&count)
	return count > 0
}

// CountVotes 按票值分组派生计数，计数本身从不落库
func (r *BallotRepository) CountVotes(problemID uint) (*model.VoteCounts, error) {
	type row struct {
		Vote  model.VoteValue
		Count int64
	}
	var rows []row
	err := r.DB.Model(&model.ProblemVote{}).
		Select("vote, COUNT(*) AS count").
		Where("problem_id = ?", problemID).
		Group("vote").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := &model.VoteCounts{}
	for _, row := range rows {
		switch row.Vote {
		case model.VoteUp:
			counts.Up = row.Count
		case model.VoteDown:
			counts.Down = row.Count
		}
	}
	return counts, nil
}

func (r *BallotRepository) CreateLike(like *model.ContentLike) error {
	return r.DB.Create(like).Error
}

func (r *BallotRepository) HasLiked(userID uint, contentType, contentID string) bool {
	if userID == 0 {
		return false
	}
	var count int64
	r.DB.Model(&model.ContentLike{}).
		Where("user_id = ? AND content_type = ? AND content_id = ?", userID, contentType, contentID).
		Count(&count)
	return count > 0
}
