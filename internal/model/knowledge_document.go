package model

import "time"

// 文档类型
const (
	DocTypeTranscript       = "transcript"
	DocTypeMethodology      = "methodology"
	DocTypeProcedure        = "procedure"
	DocTypeTraining         = "training"
	DocTypeCaseStudy        = "case_study"
	DocTypeManufacturerSpec = "manufacturer_spec"
	DocTypeProductInfo      = "product_info"
	DocTypeInstallGuide     = "installation_guide"
	DocTypeReferenceImage   = "reference_image"
	DocTypeAudioRecording   = "audio_recording"
	DocTypeVideo            = "video"
	DocTypeDamagePattern    = "damage_pattern"
	DocTypeInsuranceDoc     = "insurance_doc"
	DocTypeOther            = "other"
)

// 向量化处理状态
const (
	ProcessingPending   = "pending"
	ProcessingCompleted = "completed"
	ProcessingFailed    = "failed"
)

// DocTypes 全部合法的文档类型
var DocTypes = []string{
	DocTypeTranscript, DocTypeMethodology, DocTypeProcedure, DocTypeTraining,
	DocTypeCaseStudy, DocTypeManufacturerSpec, DocTypeProductInfo,
	DocTypeInstallGuide, DocTypeReferenceImage, DocTypeAudioRecording,
	DocTypeVideo, DocTypeDamagePattern, DocTypeInsuranceDoc, DocTypeOther,
}

// IsValidDocType 校验文档类型
func IsValidDocType(t string) bool {
	for _, dt := range DocTypes {
		if dt == t {
			return true
		}
	}
	return false
}

// KnowledgeDocument 知识库文档模型
type KnowledgeDocument struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Title       string     `json:"title" gorm:"size:255;not null"`
	Description string     `json:"description" gorm:"type:text"`
	CategoryID  *uint      `json:"category_id" gorm:"index"`      // 可空，引用分类（不级联删除）
	DocType     string     `json:"doc_type" gorm:"size:50;index"` // transcript, methodology, procedure...
	Content     string     `json:"content" gorm:"type:text"`      // 内嵌文本内容
	FileName    string     `json:"file_name" gorm:"size:255"`     // 可选的文件引用
	FileSize    int64      `json:"file_size"`
	MimeType    string     `json:"mime_type" gorm:"size:100"`
	StoragePath string     `json:"storage_path" gorm:"size:512"`
	Enabled     bool       `json:"enabled" gorm:"default:true;index"`
	Public      bool       `json:"public" gorm:"default:false"`
	Version     int        `json:"version" gorm:"default:1"` // 每次编辑递增
	UploadedBy  string     `json:"uploaded_by" gorm:"size:100;index"`
	ApprovedBy  string     `json:"approved_by" gorm:"size:100"`
	ApprovedAt  *time.Time `json:"approved_at"` // 为空表示未审批，审批是触发向量化的闸门

	// 向量化状态用显式列而不是塞在 metadata 里，便于穷举检查
	ProcessingStatus string `json:"processing_status" gorm:"size:20;default:'pending';index"`
	ProcessingError  string `json:"processing_error" gorm:"type:text"`
	EmbeddingCount   int    `json:"embedding_count" gorm:"default:0"`

	Metadata string `json:"metadata" gorm:"type:json"` // 其余自由元信息（来源、作者等）

	Category   *KnowledgeCategory   `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Embeddings []KnowledgeEmbedding `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 指定表名
func (KnowledgeDocument) TableName() string {
	return "knowledge_documents"
}

// IsApproved 文档是否已审批
func (d *KnowledgeDocument) IsApproved() bool {
	return d.ApprovedAt != nil
}
