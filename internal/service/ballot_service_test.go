package service

import (
	"fmt"
	"mentor_site_backend/internal/model"
	"mentor_site_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeBallotStore 票据以 (主体, 目标) 为键，重复插入返回重复键错误，
// 计数按票值分组派生，与生产实现的唯一索引 + GROUP BY 语义一致
type fakeBallotStore struct {
	votes map[factKey]model.VoteValue // (problemID, userID)
	likes map[string]bool             // userID|contentType|contentID
}

func newFakeBallotStore() *fakeBallotStore {
	return &fakeBallotStore{
		votes: map[factKey]model.VoteValue{},
		likes: map[string]bool{},
	}
}

func likeKey(like *model.ContentLike) string {
	return fmt.Sprintf("%d|%s|%s", like.UserID, like.ContentType, like.ContentID)
}

func (f *fakeBallotStore) CreateVote(vote *model.ProblemVote) error {
	k := factKey{userID: vote.UserID, problemID: vote.ProblemID}
	if _, ok := f.votes[k]; ok {
		return gorm.ErrDuplicatedKey
	}
	f.votes[k] = vote.Vote
	return nil
}

func (f *fakeBallotStore) HasVoted(problemID, userID uint) bool {
	_, ok := f.votes[factKey{userID: userID, problemID: problemID}]
	return ok
}

func (f *fakeBallotStore) CountVotes(problemID uint) (*model.VoteCounts, error) {
	counts := &model.VoteCounts{}
	for k, v := range f.votes {
		if k.problemID != problemID {
			continue
		}
		switch v {
		case model.VoteUp:
			counts.Up++
		case model.VoteDown:
			counts.Down++
		}
	}
	return counts, nil
}

func (f *fakeBallotStore) CreateLike(like *model.ContentLike) error {
	k := likeKey(like)
	if f.likes[k] {
		return gorm.ErrDuplicatedKey
	}
	f.likes[k] = true
	return nil
}

func (f *fakeBallotStore) HasLiked(userID uint, contentType, contentID string) bool {
	return f.likes[likeKey(&model.ContentLike{UserID: userID, ContentType: contentType, ContentID: contentID})]
}

type fakePostStore struct {
	posts map[string]*model.Post
}

func (f *fakePostStore) FindByID(id string) (*model.Post, error) {
	if p, ok := f.posts[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePostStore) IncrementUpvotes(postID string) error {
	f.posts[postID].Upvotes++
	return nil
}

func ballotFixture() (*BallotService, *fakeBallotStore, *fakePostStore) {
	ballots := newFakeBallotStore()
	posts := &fakePostStore{posts: map[string]*model.Post{
		"post-1": {UUIDBase: model.UUIDBase{ID: "post-1"}, Title: "第一帖"},
	}}
	catalog := &fakeCatalog{problems: map[uint]*model.Problem{
		testProblemID: {BaseModel: model.BaseModel{ID: testProblemID}, CourseID: testCourseID},
	}}
	return NewBallotService(ballots, catalog, posts), ballots, posts
}

func TestCastVoteExclusive(t *testing.T) {
	svc, ballots, _ := ballotFixture()

	first, err := svc.CastVote(1, testProblemID, model.VoteUp)
	require.NoError(t, err)
	assert.False(t, first.Already)
	assert.Equal(t, int64(1), first.Counts.Up)
	assert.Equal(t, int64(0), first.Counts.Down)

	// 换票值再投也不行：终身一票，计数纹丝不动
	second, err := svc.CastVote(1, testProblemID, model.VoteDown)
	require.NoError(t, err)
	assert.True(t, second.Already, "重复投票呈现为已投过，不是报错")
	assert.Equal(t, int64(1), second.Counts.Up)
	assert.Equal(t, int64(0), second.Counts.Down)
	assert.Len(t, ballots.votes, 1)

	// 其他人的票互不影响
	other, err := svc.CastVote(2, testProblemID, model.VoteDown)
	require.NoError(t, err)
	assert.False(t, other.Already)
	assert.Equal(t, int64(1), other.Counts.Up)
	assert.Equal(t, int64(1), other.Counts.Down)
}

func TestCastVoteValidation(t *testing.T) {
	svc, _, _ := ballotFixture()

	_, err := svc.CastVote(1, testProblemID, model.VoteValue("maybe"))
	assert.ErrorIs(t, err, util.ErrInvalidVoteValue)

	_, err = svc.CastVote(1, 999, model.VoteUp)
	assert.ErrorIs(t, err, util.ErrProblemNotFound)
}

func TestLikeContentExactlyOnce(t *testing.T) {
	svc, _, posts := ballotFixture()

	already, err := svc.LikeContent(1, "post", "post-1")
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, 1, posts.posts["post-1"].Upvotes)

	// 重复点赞：already=true，冗余计数不再 +1
	already, err = svc.LikeContent(1, "post", "post-1")
	require.NoError(t, err)
	assert.True(t, already)
	assert.Equal(t, 1, posts.posts["post-1"].Upvotes, "点赞数恰好加一次")

	assert.True(t, svc.HasLiked(1, "post", "post-1"))
	assert.False(t, svc.HasLiked(2, "post", "post-1"))
}

func TestLikeContentValidation(t *testing.T) {
	svc, _, _ := ballotFixture()

	_, err := svc.LikeContent(1, "comment", "post-1")
	assert.ErrorIs(t, err, util.ErrInvalidContentType)

	_, err = svc.LikeContent(1, "post", "missing")
	assert.ErrorIs(t, err, util.ErrPostNotFound)
}
