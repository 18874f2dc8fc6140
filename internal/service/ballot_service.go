package service

import (
	"errors"
	"mentor_site_backend/internal/model"
	"mentor_site_backend/internal/util"
	"mentor_site_backend/pkg/monitoring"

	"gorm.io/gorm"
)

// BallotStore 票据持久层，repository.BallotRepository 是生产实现
type BallotStore interface {
	CreateVote(vote *model.ProblemVote) error
	HasVoted(problemID, userID uint) bool
	CountVotes(problemID uint) (*model.VoteCounts, error)
	CreateLike(like *model.ContentLike) error
	HasLiked(userID uint, contentType, contentID string) bool
}

// ProblemFinder 题目存在性校验，repository.CourseRepository 是生产实现
type ProblemFinder interface {
	FindProblemByID(id uint) (*model.Problem, error)
}

// PostStore 点赞目标查询与冗余计数，repository.PostRepository 是生产实现
type PostStore interface {
	FindByID(id string) (*model.Post, error)
	IncrementUpvotes(postID string) error
}

// BallotService 一次性投票/点赞。每个 (主体, 目标) 永远至多一张票，
// 幂等性同样来自唯一索引：重复投票被识别为"已投过"，不动任何计数。
type BallotService struct {
	BallotRepo BallotStore
	CourseRepo ProblemFinder
	PostRepo   PostStore
}

func NewBallotService(
	ballotRepo BallotStore,
	courseRepo ProblemFinder,
	postRepo PostStore,
) *BallotService {
	return &BallotService{
		BallotRepo: ballotRepo,
		CourseRepo: courseRepo,
		PostRepo:   postRepo,
	}
}

// VoteResult already=true 表示这次调用没有产生新票
type VoteResult struct {
	Counts  *model.VoteCounts `json:"counts"`
	Already bool              `json:"already"`
}

// CastVote 给题目投票。终身一票，第二次投返回"已投过"而不是报错
func (s *BallotService) CastVote(userID, problemID uint, value model.VoteValue) (*VoteResult, error) {
	if value != model.VoteUp && value != model.VoteDown {
		return nil, util.ErrInvalidVoteValue
	}

	if _, err := s.CourseRepo.FindProblemByID(problemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrProblemNotFound
		}
		return nil, err
	}

	vote := &model.ProblemVote{
		ProblemID: problemID,
		UserID:    userID,
		Vote:      value,
	}

	already := false
	err := s.BallotRepo.CreateVote(vote)
	switch {
	case err == nil:
		monitoring.BallotCounter.WithLabelValues("problem_vote", "created").Inc()
	case util.IsDuplicateKeyError(err):
		already = true
		monitoring.BallotCounter.WithLabelValues("problem_vote", "duplicate").Inc()
	default:
		return nil, err
	}

	counts, err := s.BallotRepo.CountVotes(problemID)
	if err != nil {
		return nil, err
	}
	return &VoteResult{Counts: counts, Already: already}, nil
}

// VoteCounts 按票值分组的派生计数
func (s *BallotService) VoteCounts(problemID uint) (*model.VoteCounts, error) {
	return s.BallotRepo.CountVotes(problemID)
}

// HasVoted userID 为 0（未登录）时恒为 false
func (s *BallotService) HasVoted(problemID, userID uint) bool {
	return s.BallotRepo.HasVoted(problemID, userID)
}

func (s *BallotService) HasLiked(userID uint, contentType, contentID string) bool {
	return s.BallotRepo.HasLiked(userID, contentType, contentID)
}

// LikeContent 一次性点赞。重复点赞返回 already=true，冗余计数不再 +1
func (s *BallotService) LikeContent(userID uint, contentType, contentID string) (bool, error) {
	if contentType != "post" {
		return false, util.ErrInvalidContentType
	}

	if _, err := s.PostRepo.FindByID(contentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, util.ErrPostNotFound
		}
		return false, err
	}

	like := &model.ContentLike{
		UserID:      userID,
		ContentType: contentType,
		ContentID:   contentID,
	}

	err := s.BallotRepo.CreateLike(like)
	switch {
	case err == nil:
		monitoring.BallotCounter.WithLabelValues("content_like", "created").Inc()
		// 点赞数只在真正插入成功后 +1，由唯一索引保证恰好一次
		if err := s.PostRepo.IncrementUpvotes(contentID); err != nil {
			return false, err
		}
		return false, nil
	case util.IsDuplicateKeyError(err):
		monitoring.BallotCounter.WithLabelValues("content_like", "duplicate").Inc()
		return true, nil
	default:
		return false, err
	}
}
