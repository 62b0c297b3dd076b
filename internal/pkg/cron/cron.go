package cron

import (
	"log"
	"time"

	"github.com/qs3c/lingo_go_server/internal/pkg/email"
	"github.com/qs3c/lingo_go_server/internal/repository"
	"github.com/qs3c/lingo_go_server/internal/service"
)

// 到期提醒只在这些天数发送
var warningDays = []int{7, 3, 1, 0}

type Service struct {
	subService *service.SubscriptionService
	userRepo   *repository.UserRepository
	emailSvc   *email.Service
	stopChan   chan struct{}
}

func NewService(
	subService *service.SubscriptionService,
	userRepo *repository.UserRepository,
	emailSvc *email.Service,
) *Service {
	return &Service{
		subService: subService,
		userRepo:   userRepo,
		emailSvc:   emailSvc,
		stopChan:   make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runMonthlyUsageReset()
	go s.runExpiryWarnings()
	log.Println("Cron service started (monthly usage reset + expiry warnings)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

// runMonthlyUsageReset 每月 1 日 0 点（UTC）重置月度订阅用量
func (s *Service) runMonthlyUsageReset() {
	for {
		now := time.Now().UTC()
		nextMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
		timer := time.NewTimer(nextMonth.Sub(now))

		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			s.resetMonthlyUsage()
		}
	}
}

// resetMonthlyUsage 重置所有月度订阅用户的用量
func (s *Service) resetMonthlyUsage() {
	log.Println("Starting monthly usage reset...")
	if err := s.subService.ResetAllMonthly(); err != nil {
		log.Printf("Failed to reset monthly usage: %v", err)
		return
	}
	log.Println("Monthly usage reset completed")
}

// runExpiryWarnings 每日 8 点（UTC）发送到期提醒邮件
func (s *Service) runExpiryWarnings() {
	for {
		now := time.Now().UTC()
		next := time.Date(now.Year(), now.Month(), now.Day(), 8, 0, 0, 0, time.UTC)
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			s.sendExpiryWarnings()
		}
	}
}

// sendExpiryWarnings 给 7 天内到期的订阅用户发提醒，
// 只在距到期 7/3/1/0 天时发送
func (s *Service) sendExpiryWarnings() {
	if s.emailSvc == nil {
		return
	}

	users, err := s.userRepo.ListExpiring(8 * 24 * time.Hour)
	if err != nil {
		log.Printf("Failed to list expiring subscriptions: %v", err)
		return
	}

	sent := 0
	for _, user := range users {
		if user.Email == nil || user.CurrentPeriodEnd == nil {
			continue
		}

		days := service.DaysUntil(*user.CurrentPeriodEnd)
		if !warningDay(days) {
			continue
		}

		if err := s.emailSvc.SendExpiryWarning(*user.Email, user.Username, service.ExpiryWarningMessage(days)); err != nil {
			log.Printf("Failed to send expiry warning to user %d: %v", user.ID, err)
			continue
		}
		sent++
	}

	if sent > 0 {
		log.Printf("Expiry warnings sent: %d", sent)
	}
}

func warningDay(days int) bool {
	for _, d := range warningDays {
		if d == days {
			return true
		}
	}
	return false
}

// RunNow 立即执行月度用量重置（用于测试或手动触发）
func (s *Service) RunNow() error {
	log.Println("Manual monthly usage reset triggered...")
	return s.subService.ResetAllMonthly()
}

// WarningDays 会触发提醒的到期天数
func WarningDays() []int {
	return append([]int(nil), warningDays...)
}
