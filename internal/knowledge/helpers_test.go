package knowledge

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Rezzyman/WINNSTORM-sub000/internal/model"
)

// newTestStore 内存 sqlite 上的存储层
func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&model.KnowledgeCategory{},
		&model.KnowledgeDocument{},
		&model.KnowledgeEmbedding{},
		&model.KnowledgeAuditLog{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return NewStore(db)
}

// fakeEmbedder 可编程的向量化测试替身
type fakeEmbedder struct {
	fn    func(call int, text string) ([]float64, error)
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	f.calls++
	if f.fn != nil {
		return f.fn(f.calls, text)
	}
	return []float64{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) GetModel() string {
	return "fake-embedding"
}

// mustCreateDoc 创建并返回一个测试文档
func mustCreateDoc(t *testing.T, store *Store, doc *model.KnowledgeDocument) *model.KnowledgeDocument {
	t.Helper()
	if doc.DocType == "" {
		doc.DocType = model.DocTypeMethodology
	}
	doc.Enabled = true
	if err := store.CreateDocument(doc, AuditMeta{Actor: "tester"}); err != nil {
		t.Fatalf("failed to create document: %v", err)
	}
	return doc
}
