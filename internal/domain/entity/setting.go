package entity

import (
	"time"
)

// 写作相关的系统配置键
const (
	SettingScoreThresholdEarly  = "writer.score_threshold_early"
	SettingScoreThresholdNormal = "writer.score_threshold_normal"
	SettingMaxRewriteAttempts   = "writer.max_rewrite_attempts"
)

// SystemSetting 键值型系统配置
type SystemSetting struct {
	Key       string    `json:"key" gorm:"type:varchar(128);primaryKey"`
	Value     string    `json:"value" gorm:"type:text;not null"`
	Remark    string    `json:"remark,omitempty" gorm:"type:varchar(255)"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (SystemSetting) TableName() string {
	return "system_settings"
}
