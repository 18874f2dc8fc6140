package service

import (
	"fmt"
	"mentor_site_backend/internal/config"
	"mentor_site_backend/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFactSource struct {
	facts []SolveFact
}

func (f *fakeFactSource) FetchSolveFacts(scope Scope) ([]SolveFact, error) {
	return f.facts, nil
}

type fakeProfileSource struct {
	profiles map[uint]model.PublicProfile
}

func (f *fakeProfileSource) FindPublicProfiles(ids []uint) ([]model.PublicProfile, error) {
	result := make([]model.PublicProfile, 0, len(ids))
	for _, id := range ids {
		if p, ok := f.profiles[id]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

func ranklistFixture(facts []SolveFact, profiles map[uint]model.PublicProfile) *RanklistService {
	cfg := &config.Config{}
	cfg.Ranklist.DefaultPageSize = 20

	source := &fakeFactSource{facts: facts}
	return NewRanklistService(source, source, &fakeProfileSource{profiles: profiles}, cfg)
}

func profileFixture(ids ...uint) map[uint]model.PublicProfile {
	profiles := make(map[uint]model.PublicProfile, len(ids))
	for _, id := range ids {
		profiles[id] = model.PublicProfile{
			ID:          id,
			DisplayName: fmt.Sprintf("用户%d", id),
			Username:    fmt.Sprintf("user%d", id),
		}
	}
	return profiles
}

func TestRankOrdering(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// A 和 B 同为 5 题，B 先解出第一题；C 6 题最多
	facts := []SolveFact{
		{UserID: 1, TotalSolves: 5, FirstSolvedAt: base.Add(time.Hour)}, // A
		{UserID: 2, TotalSolves: 5, FirstSolvedAt: base},                // B
		{UserID: 3, TotalSolves: 6, FirstSolvedAt: base.Add(2 * time.Hour)}, // C
	}
	svc := ranklistFixture(facts, profileFixture(1, 2, 3))

	page, err := svc.Rank(GlobalScope(), RanklistFilters{}, 1, 10, "test")
	require.NoError(t, err)
	require.Len(t, page.Entries, 3)

	assert.Equal(t, uint(3), page.Entries[0].Profile.ID, "总解题数多的在前")
	assert.Equal(t, uint(2), page.Entries[1].Profile.ID, "并列时先解出者在前")
	assert.Equal(t, uint(1), page.Entries[2].Profile.ID)

	assert.Equal(t, 1, page.Entries[0].Rank)
	assert.Equal(t, 2, page.Entries[1].Rank)
	assert.Equal(t, 3, page.Entries[2].Rank)
}

func TestRankTieBreakByUserID(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	facts := []SolveFact{
		{UserID: 9, TotalSolves: 3, FirstSolvedAt: at},
		{UserID: 4, TotalSolves: 3, FirstSolvedAt: at},
	}
	svc := ranklistFixture(facts, profileFixture(4, 9))

	page, err := svc.Rank(GlobalScope(), RanklistFilters{}, 1, 10, "test")
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)

	// 完全并列时按用户 ID 升序，保证排序确定
	assert.Equal(t, uint(4), page.Entries[0].Profile.ID)
	assert.Equal(t, uint(9), page.Entries[1].Profile.ID)
}

func TestRankPaginationStable(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var facts []SolveFact
	ids := make([]uint, 0, 25)
	for i := 1; i <= 25; i++ {
		facts = append(facts, SolveFact{
			UserID:        uint(i),
			TotalSolves:   30 - i,
			FirstSolvedAt: base.Add(time.Duration(i) * time.Minute),
		})
		ids = append(ids, uint(i))
	}
	svc := ranklistFixture(facts, profileFixture(ids...))

	page1, err := svc.Rank(GlobalScope(), RanklistFilters{}, 1, 10, "test")
	require.NoError(t, err)
	page2, err := svc.Rank(GlobalScope(), RanklistFilters{}, 2, 10, "test")
	require.NoError(t, err)
	page3, err := svc.Rank(GlobalScope(), RanklistFilters{}, 3, 10, "test")
	require.NoError(t, err)

	assert.Len(t, page1.Entries, 10)
	assert.Len(t, page2.Entries, 10)
	assert.Len(t, page3.Entries, 5)
	assert.Equal(t, int64(25), page1.Total)

	// 名次连续且不重叠
	assert.Equal(t, 1, page1.Entries[0].Rank)
	assert.Equal(t, 11, page2.Entries[0].Rank)
	assert.Equal(t, 21, page3.Entries[0].Rank)
	assert.Equal(t, 25, page3.Entries[4].Rank)

	// 越界页返回空列表而不是报错
	page4, err := svc.Rank(GlobalScope(), RanklistFilters{}, 4, 10, "test")
	require.NoError(t, err)
	assert.Empty(t, page4.Entries)
	assert.Equal(t, int64(25), page4.Total)
}

func TestRankPageLocalFilter(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	facts := []SolveFact{
		{UserID: 1, TotalSolves: 10, FirstSolvedAt: base},
		{UserID: 2, TotalSolves: 9, FirstSolvedAt: base},
		{UserID: 3, TotalSolves: 8, FirstSolvedAt: base},
	}
	profiles := map[uint]model.PublicProfile{
		1: {ID: 1, DisplayName: "Alice", Username: "alice", Institution: "KBTU", Country: "KZ"},
		2: {ID: 2, DisplayName: "Bob", Username: "bob", Institution: "MIT", Country: "US"},
		3: {ID: 3, DisplayName: "Alina", Username: "alina", Institution: "KBTU", Country: "KZ"},
	}
	svc := ranklistFixture(facts, profiles)

	// 搜索只在当前页内过滤，名次保持过滤前的全量排名
	page, err := svc.Rank(GlobalScope(), RanklistFilters{Search: "ali"}, 1, 10, "test")
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.True(t, page.Filtered)
	assert.Equal(t, "Alice", page.Entries[0].Profile.DisplayName)
	assert.Equal(t, 1, page.Entries[0].Rank)
	assert.Equal(t, "Alina", page.Entries[1].Profile.DisplayName)
	assert.Equal(t, 3, page.Entries[1].Rank, "被过滤掉的行不挪动名次")

	// 机构过滤忽略大小写
	page, err = svc.Rank(GlobalScope(), RanklistFilters{Institution: "kbtu"}, 1, 10, "test")
	require.NoError(t, err)
	assert.Len(t, page.Entries, 2)

	// 组合过滤
	page, err = svc.Rank(GlobalScope(), RanklistFilters{Search: "bob", Country: "US"}, 1, 10, "test")
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "Bob", page.Entries[0].Profile.DisplayName)

	// Total 是过滤前的全量行数
	assert.Equal(t, int64(3), page.Total)
}

func TestTopWidget(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var facts []SolveFact
	ids := make([]uint, 0, 15)
	for i := 1; i <= 15; i++ {
		facts = append(facts, SolveFact{
			UserID:        uint(i),
			TotalSolves:   i,
			FirstSolvedAt: base,
		})
		ids = append(ids, uint(i))
	}
	svc := ranklistFixture(facts, profileFixture(ids...))

	entries, err := svc.Top(GlobalScope(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	// 挂件排序语义与分页视图一致
	assert.Equal(t, uint(15), entries[0].Profile.ID)
	assert.Equal(t, 15, entries[0].TotalSolves)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, uint(11), entries[4].Profile.ID)
}

func TestScopeString(t *testing.T) {
	assert.Equal(t, "global", GlobalScope().String())
	assert.Equal(t, "course", CourseScope(7).String())
	assert.False(t, CourseScope(7).Global)
	assert.Equal(t, uint(7), CourseScope(7).CourseID)
}
