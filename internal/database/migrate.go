package database

import (
	"fmt"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"gorm.io/gorm"

	"github.com/Rezzyman/WINNSTORM-sub000/internal/model"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.KnowledgeCategory{},
		&model.KnowledgeDocument{},
		&model.KnowledgeEmbedding{},
		&model.KnowledgeAuditLog{},
		&model.Conversation{},
		&model.ChatLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}

	// 创建默认用户
	if err := createDefaultUser(db); err != nil {
		logx.Error("Failed to create default user: %v", err)
		// 不返回错误，继续启动
	}

	// 创建默认分类
	if err := createDefaultCategories(db); err != nil {
		logx.Error("Failed to create default categories: %v", err)
	}

	return nil
}

// createDefaultUser 创建默认管理员用户
func createDefaultUser(db *gorm.DB) error {
	// 检查是否已存在用户
	var count int64
	if err := db.Model(&model.User{}).Count(&count).Error; err != nil {
		return err
	}

	// 如果已有用户，不创建
	if count > 0 {
		logx.Info("Users already exist, skipping default user creation")
		return nil
	}

	// 创建默认管理员用户
	defaultUser := &model.User{
		Username: "admin",
		Nickname: "Administrator",
		Email:    "admin@winnstorm.local",
		Roles:    "admin,user",
		Enabled:  true,
	}

	// 设置默认密码: admin123
	if err := defaultUser.SetPassword("admin123"); err != nil {
		return fmt.Errorf("failed to set default password: %w", err)
	}

	// 创建用户
	if err := db.Create(defaultUser).Error; err != nil {
		return fmt.Errorf("failed to create default user: %w", err)
	}

	logx.Info("✅ Default admin user created successfully (username: admin, password: admin123)")
	return nil
}

// createDefaultCategories 创建默认知识库分类
func createDefaultCategories(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.KnowledgeCategory{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	defaults := []model.KnowledgeCategory{
		{Name: "Inspection Methodology", Description: "Field inspection procedures and standards", Icon: "clipboard", Color: "#2563eb", Enabled: true, SortOrder: 1},
		{Name: "Damage Patterns", Description: "Hail, wind and water damage reference material", Icon: "cloud-hail", Color: "#dc2626", Enabled: true, SortOrder: 2},
		{Name: "Manufacturer Specs", Description: "Roofing and siding manufacturer specifications", Icon: "factory", Color: "#16a34a", Enabled: true, SortOrder: 3},
		{Name: "Insurance Documentation", Description: "Carrier forms, claim guidelines and policy language", Icon: "file-text", Color: "#ca8a04", Enabled: true, SortOrder: 4},
		{Name: "Training", Description: "Onboarding and training material for consultants", Icon: "graduation-cap", Color: "#9333ea", Enabled: true, SortOrder: 5},
	}

	if err := db.Create(&defaults).Error; err != nil {
		return fmt.Errorf("failed to create default categories: %w", err)
	}

	logx.Info("✅ Created %d default knowledge categories", len(defaults))
	return nil
}
