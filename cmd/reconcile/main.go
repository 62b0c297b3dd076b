package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/qs3c/lingo_go_server/config"
	"github.com/qs3c/lingo_go_server/internal/model"
)

// reconcile 以会话记录表为准重算用量与学习进度计数，
// 替代散落的一次性修复脚本。默认 dry-run，只报告不落库。
var (
	dryRun   = flag.Bool("dry-run", true, "Report discrepancies without writing")
	userID   = flag.Int64("user", 0, "Reconcile a single user (0 = all users)")
	fixPlans = flag.Bool("plans", true, "Reconcile learning plan progress counters")
	fixUsage = flag.Bool("usage", true, "Reconcile per-period usage counters")
)

func main() {
	flag.Parse()

	log.Println("Starting reconcile task...")
	log.Printf("Mode: dry-run=%v, user=%d", *dryRun, *userID)

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := connectDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	planFixed, usageFixed := 0, 0

	if *fixPlans {
		log.Println("\nReconciling learning plan progress...")
		planFixed = reconcilePlans(db)
	}

	if *fixUsage {
		log.Println("\nReconciling usage counters...")
		usageFixed = reconcileUsage(db)
	}

	log.Println("\n" + strings.Repeat("=", 60))
	log.Println("Reconcile Summary")
	log.Println(strings.Repeat("=", 60))
	log.Printf("Plans with drift: %d", planFixed)
	log.Printf("Users with drift: %d", usageFixed)
	if *dryRun {
		log.Println("\nDRY RUN MODE - no rows were written")
		log.Println("Run with -dry-run=false to apply corrections")
	} else {
		log.Println("\nReconcile completed")
	}
	log.Println(strings.Repeat("=", 60))
}

// reconcilePlans 用会话记录数重算每个计划的进度字段
func reconcilePlans(db *gorm.DB) int {
	var plans []model.LearningPlan
	query := db.Model(&model.LearningPlan{})
	if *userID > 0 {
		query = query.Where("user_id = ?", *userID)
	}
	if err := query.Find(&plans).Error; err != nil {
		log.Printf("Failed to query plans: %v", err)
		return 0
	}

	fixed := 0
	for i := range plans {
		plan := &plans[i]

		var count int64
		if err := db.Model(&model.ConversationSession{}).
			Where("plan_id = ?", plan.ID).Count(&count).Error; err != nil {
			log.Printf("  plan %s: failed to count sessions: %v", plan.ID, err)
			continue
		}

		completed := int(count)
		if plan.TotalSessions > 0 && completed > plan.TotalSessions {
			completed = plan.TotalSessions
		}
		if completed == plan.CompletedSessions {
			continue
		}

		percentage := 0.0
		if plan.TotalSessions > 0 {
			percentage = float64(completed) / float64(plan.TotalSessions) * 100
		}

		log.Printf("  plan %s: completed_sessions %d -> %d (%.1f%%)",
			plan.ID, plan.CompletedSessions, completed, percentage)
		fixed++

		if *dryRun {
			continue
		}

		// 按新计数重铺各周完成分布
		remaining := completed
		for j := range plan.WeeklySchedule {
			week := &plan.WeeklySchedule[j]
			if remaining >= week.TotalSessions {
				week.SessionsCompleted = week.TotalSessions
				remaining -= week.TotalSessions
			} else {
				week.SessionsCompleted = remaining
				remaining = 0
			}
		}

		err := db.Model(&model.LearningPlan{}).Where("id = ?", plan.ID).
			Updates(map[string]interface{}{
				"completed_sessions":  completed,
				"progress_percentage": percentage,
				"weekly_schedule":     plan.WeeklySchedule,
			}).Error
		if err != nil {
			log.Printf("  plan %s: failed to update: %v", plan.ID, err)
		}
	}

	log.Printf("Checked %d plans, %d with drift", len(plans), fixed)
	return fixed
}

// reconcileUsage 用当前计费窗口内的会话数重算用量计数
func reconcileUsage(db *gorm.DB) int {
	var users []model.User
	query := db.Model(&model.User{}).Where("current_period_start IS NOT NULL")
	if *userID > 0 {
		query = query.Where("id = ?", *userID)
	}
	if err := query.Find(&users).Error; err != nil {
		log.Printf("Failed to query users: %v", err)
		return 0
	}

	fixed := 0
	for _, user := range users {
		var count int64
		err := db.Model(&model.ConversationSession{}).
			Where("user_id = ? AND created_at >= ?", user.ID, *user.CurrentPeriodStart).
			Count(&count).Error
		if err != nil {
			log.Printf("  user %d: failed to count sessions: %v", user.ID, err)
			continue
		}

		used := int(count)
		if used == user.PracticeSessionsUsed {
			continue
		}

		log.Printf("  user %d: practice_sessions_used %d -> %d",
			user.ID, user.PracticeSessionsUsed, used)
		fixed++

		if *dryRun {
			continue
		}

		err = db.Model(&model.User{}).Where("id = ?", user.ID).
			Update("practice_sessions_used", used).Error
		if err != nil {
			log.Printf("  user %d: failed to update: %v", user.ID, err)
		}
	}

	log.Printf("Checked %d users, %d with drift", len(users), fixed)
	return fixed
}

// connectDB 直连数据库，不做迁移
func connectDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Database,
	)

	return gorm.Open(mysql.Open(dsn), &gorm.Config{})
}
