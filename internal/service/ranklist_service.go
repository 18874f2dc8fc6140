package service

import (
	"mentor_site_backend/internal/config"
	"mentor_site_backend/internal/model"
	"mentor_site_backend/internal/repository"
	"mentor_site_backend/pkg/monitoring"
	"sort"
	"strings"
	"time"
)

// Scope 榜单聚合范围：某一课程的题目集合，或全局（所有题目）
type Scope struct {
	Global   bool `json:"global"`
	CourseID uint `json:"courseId"`
}

func GlobalScope() Scope {
	return Scope{Global: true}
}

func CourseScope(courseID uint) Scope {
	return Scope{CourseID: courseID}
}

func (s Scope) String() string {
	if s.Global {
		return "global"
	}
	return "course"
}

// SolveFact 单个用户在某范围内的解题事实汇总
type SolveFact struct {
	UserID        uint
	TotalSolves   int
	FirstSolvedAt time.Time
}

// SolveFactSource 榜单数据源抽象。两条计算路径（原始折算、预聚合表）
// 都实现它，排序与并列规则只写一份。
type SolveFactSource interface {
	FetchSolveFacts(scope Scope) ([]SolveFact, error)
}

// RawSolveSource 原始路径：直接在 solves 表上按范围折算。
// 小范围 Top-N 挂件用它，结果永远和事实一致。
type RawSolveSource struct {
	ProgressRepo *repository.ProgressRepository
	CourseRepo   *repository.CourseRepository
}

func (s *RawSolveSource) FetchSolveFacts(scope Scope) ([]SolveFact, error) {
	var problemIDs []uint
	if !scope.Global {
		ids, err := s.CourseRepo.ProblemIDsByCourse(scope.CourseID)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []SolveFact{}, nil
		}
		problemIDs = ids
	}

	rows, err := s.ProgressRepo.AggregateSolves(problemIDs)
	if err != nil {
		return nil, err
	}

	facts := make([]SolveFact, len(rows))
	for i, row := range rows {
		facts[i] = SolveFact{
			UserID:        row.UserID,
			TotalSolves:   row.TotalSolves,
			FirstSolvedAt: row.FirstSolvedAt,
		}
	}
	return facts, nil
}

// StatsSolveSource 预聚合路径：读 course_user_stats。
// 大分页视图用它，最终一致（由 Solve 写路径增量维护）。
type StatsSolveSource struct {
	StatsRepo *repository.StatsRepository
}

func (s *StatsSolveSource) FetchSolveFacts(scope Scope) ([]SolveFact, error) {
	if scope.Global {
		rows, err := s.StatsRepo.AggregateGlobal()
		if err != nil {
			return nil, err
		}
		facts := make([]SolveFact, len(rows))
		for i, row := range rows {
			facts[i] = SolveFact{
				UserID:        row.UserID,
				TotalSolves:   row.TotalSolves,
				FirstSolvedAt: row.FirstSolvedAt,
			}
		}
		return facts, nil
	}

	stats, err := s.StatsRepo.FindByCourse(scope.CourseID)
	if err != nil {
		return nil, err
	}
	facts := make([]SolveFact, len(stats))
	for i, st := range stats {
		facts[i] = SolveFact{
			UserID:        st.UserID,
			TotalSolves:   st.TotalSolves,
			FirstSolvedAt: st.FirstSolvedAt,
		}
	}
	return facts, nil
}

// RanklistFilters 针对用户档案字段的过滤，只作用于当前页
type RanklistFilters struct {
	Search      string `form:"search"`
	Institution string `form:"institution"`
	Country     string `form:"country"`
}

func (f RanklistFilters) empty() bool {
	return f.Search == "" && f.Institution == "" && f.Country == ""
}

type RanklistEntry struct {
	Rank          int                 `json:"rank"`
	Profile       model.PublicProfile `json:"profile"`
	TotalSolves   int                 `json:"totalSolves"`
	FirstSolvedAt time.Time           `json:"firstSolvedAt"`
}

type RanklistPage struct {
	Entries  []RanklistEntry `json:"entries"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	Limit    int             `json:"limit"`
	Scope    Scope           `json:"scope"`
	Filtered bool            `json:"filtered"`
}

// ProfileSource 公开档案批量查询，页内挂接展示字段用
type ProfileSource interface {
	FindPublicProfiles(ids []uint) ([]model.PublicProfile, error)
}

// RanklistService 把解题事实折算成排名。
// 分页视图走预聚合源，Top-N 挂件走原始源，排序语义完全一致。
type RanklistService struct {
	PageSource   SolveFactSource
	WidgetSource SolveFactSource
	UserRepo     ProfileSource
	Cfg          *config.Config
}

func NewRanklistService(
	pageSource SolveFactSource,
	widgetSource SolveFactSource,
	userRepo ProfileSource,
	cfg *config.Config,
) *RanklistService {
	return &RanklistService{
		PageSource:   pageSource,
		WidgetSource: widgetSource,
		UserRepo:     userRepo,
		Cfg:          cfg,
	}
}

// sortFacts 唯一的一份排序规则：总解题数降序，首解时间升序（先解先排），
// 再按用户 ID 升序兜底，保证分页在多次请求间稳定。
func sortFacts(facts []SolveFact) {
	sort.Slice(facts, func(i, j int) bool {
		if facts[i].TotalSolves != facts[j].TotalSolves {
			return facts[i].TotalSolves > facts[j].TotalSolves
		}
		if !facts[i].FirstSolvedAt.Equal(facts[j].FirstSolvedAt) {
			return facts[i].FirstSolvedAt.Before(facts[j].FirstSolvedAt)
		}
		return facts[i].UserID < facts[j].UserID
	})
}

// Rank 分页榜单。过滤只作用于已取出的当前页（搜索框不扩大取数窗口），
// 名次按过滤前的全量排序计算。
func (s *RanklistService) Rank(scope Scope, filters RanklistFilters, page, limit int, trigger string) (*RanklistPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = s.Cfg.Ranklist.DefaultPageSize
	}

	facts, err := s.PageSource.FetchSolveFacts(scope)
	if err != nil {
		return nil, err
	}
	sortFacts(facts)

	monitoring.RanklistRecomputeCounter.WithLabelValues(scope.String(), trigger).Inc()

	total := int64(len(facts))
	offset := (page - 1) * limit
	if offset > len(facts) {
		offset = len(facts)
	}
	end := offset + limit
	if end > len(facts) {
		end = len(facts)
	}
	pageFacts := facts[offset:end]

	entries, err := s.attachProfiles(pageFacts, offset)
	if err != nil {
		return nil, err
	}

	filtered := !filters.empty()
	if filtered {
		entries = applyFilters(entries, filters)
	}

	return &RanklistPage{
		Entries:  entries,
		Total:    total,
		Page:     page,
		Limit:    limit,
		Scope:    scope,
		Filtered: filtered,
	}, nil
}

// Top 原始路径的 Top-N 挂件，排序语义与分页视图完全相同
func (s *RanklistService) Top(scope Scope, limit int) ([]RanklistEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	facts, err := s.WidgetSource.FetchSolveFacts(scope)
	if err != nil {
		return nil, err
	}
	sortFacts(facts)

	monitoring.RanklistRecomputeCounter.WithLabelValues(scope.String(), "widget").Inc()

	if len(facts) > limit {
		facts = facts[:limit]
	}
	return s.attachProfiles(facts, 0)
}

// MyRank 本人名次。与分页视图同一份事实和排序，找不到则 rank 为 0
func (s *RanklistService) MyRank(scope Scope, userID uint) (*RanklistEntry, error) {
	facts, err := s.PageSource.FetchSolveFacts(scope)
	if err != nil {
		return nil, err
	}
	sortFacts(facts)

	for i, f := range facts {
		if f.UserID == userID {
			entries, err := s.attachProfiles(facts[i:i+1], i)
			if err != nil {
				return nil, err
			}
			return &entries[0], nil
		}
	}
	return &RanklistEntry{}, nil
}

// attachProfiles 只为当前页批量挂接公开档案字段
func (s *RanklistService) attachProfiles(facts []SolveFact, offset int) ([]RanklistEntry, error) {
	ids := make([]uint, len(facts))
	for i, f := range facts {
		ids[i] = f.UserID
	}

	profiles, err := s.UserRepo.FindPublicProfiles(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]model.PublicProfile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	entries := make([]RanklistEntry, len(facts))
	for i, f := range facts {
		entries[i] = RanklistEntry{
			Rank:          offset + i + 1,
			Profile:       byID[f.UserID],
			TotalSolves:   f.TotalSolves,
			FirstSolvedAt: f.FirstSolvedAt,
		}
	}
	return entries, nil
}

// applyFilters 页内过滤：搜索匹配昵称/用户名，机构与国家忽略大小写精确匹配
func applyFilters(entries []RanklistEntry, filters RanklistFilters) []RanklistEntry {
	result := make([]RanklistEntry, 0, len(entries))
	search := strings.ToLower(strings.TrimSpace(filters.Search))

	for _, e := range entries {
		if search != "" &&
			!strings.Contains(strings.ToLower(e.Profile.DisplayName), search) &&
			!strings.Contains(strings.ToLower(e.Profile.Username), search) {
			continue
		}
		if filters.Institution != "" && !strings.EqualFold(e.Profile.Institution, filters.Institution) {
			continue
		}
		if filters.Country != "" && !strings.EqualFold(e.Profile.Country, filters.Country) {
			continue
		}
		result = append(result, e)
	}
	return result
}
