package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qs3c/lingo_go_server/internal/model"
	"github.com/qs3c/lingo_go_server/internal/model/dto"
	"github.com/qs3c/lingo_go_server/internal/repository"
)

// 每个级别的周训练主题，按周轮转
var weekFocusThemes = map[string][]string{
	"A1": {"基础问候与自我介绍", "日常物品与数字", "家庭与朋友", "饮食与点餐"},
	"A2": {"日常活动描述", "购物与出行", "过去经历叙述", "计划与约定"},
	"B1": {"观点表达与讨论", "工作与学习场景", "旅行与文化", "故事复述"},
	"B2": {"抽象话题讨论", "新闻与时事", "正式与非正式表达", "辩论与说服"},
	"C1": {"专业领域交流", "细微语气与暗示", "学术讨论", "即兴演讲"},
	"C2": {"母语级表达打磨", "修辞与幽默", "跨文化沟通", "复杂文本讨论"},
}

var weekActivities = []string{"对话练习", "词汇巩固"}

// PlanService 学习计划的创建与查询
type PlanService struct {
	planRepo *repository.PlanRepository
	userRepo *repository.UserRepository
}

func NewPlanService(planRepo *repository.PlanRepository, userRepo *repository.UserRepository) *PlanService {
	return &PlanService{planRepo: planRepo, userRepo: userRepo}
}

// CreatePlan 基于评估结果生成学习计划：每月 4 周，每周固定 2 次会话
func (s *PlanService) CreatePlan(userID int64, req *dto.CreatePlanRequest) (*model.LearningPlan, error) {
	weeks := req.DurationMonths * 4
	totalSessions := weeks * model.SessionsPerWeek

	themes, ok := weekFocusThemes[req.ProficiencyLevel]
	if !ok {
		themes = weekFocusThemes["B1"]
	}

	schedule := make(model.WeekList, 0, weeks)
	for i := 0; i < weeks; i++ {
		schedule = append(schedule, model.Week{
			Focus:         fmt.Sprintf("第 %d 周：%s", i+1, themes[i%len(themes)]),
			Activities:    append([]string(nil), weekActivities...),
			TotalSessions: model.SessionsPerWeek,
		})
	}

	plan := &model.LearningPlan{
		ID:               uuid.New().String(),
		UserID:           userID,
		Language:         req.Language,
		ProficiencyLevel: req.ProficiencyLevel,
		Goals:            model.StringArray(req.Goals),
		DurationMonths:   req.DurationMonths,
		TotalSessions:    totalSessions,
		WeeklySchedule:   schedule,
		SessionSummaries: model.StringArray{},
	}

	if err := s.planRepo.Create(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// GetPlan 查询计划详情，校验归属
func (s *PlanService) GetPlan(userID int64, planID string) (*model.LearningPlan, error) {
	plan, err := s.planRepo.GetByID(planID)
	if err != nil {
		return nil, err
	}
	if plan.UserID != userID {
		return nil, ErrNotPlanOwner
	}
	return plan, nil
}

// GetLatestPlan 用户最近创建的计划
func (s *PlanService) GetLatestPlan(userID int64) (*model.LearningPlan, error) {
	return s.planRepo.GetLatestByUserID(userID)
}

// ListPlans 用户的计划列表
func (s *PlanService) ListPlans(userID int64) ([]dto.PlanListItem, error) {
	plans, err := s.planRepo.ListByUserID(userID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.PlanListItem, 0, len(plans))
	for _, p := range plans {
		items = append(items, dto.PlanListItem{
			ID:                 p.ID,
			Language:           p.Language,
			ProficiencyLevel:   p.ProficiencyLevel,
			TotalSessions:      p.TotalSessions,
			CompletedSessions:  p.CompletedSessions,
			ProgressPercentage: p.ProgressPercentage,
			Status:             p.Status(),
			CreatedAt:          p.CreatedAt.Format(time.RFC3339),
		})
	}
	return items, nil
}

// DeletePlan 删除计划，校验归属
func (s *PlanService) DeletePlan(userID int64, planID string) error {
	plan, err := s.planRepo.GetByID(planID)
	if err != nil {
		return err
	}
	if plan.UserID != userID {
		return ErrNotPlanOwner
	}
	return s.planRepo.Delete(planID)
}
