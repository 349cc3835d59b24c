package database

import (
	"context"
	"fmt"

	"github.com/weiwangfds/reelfolio/internal/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// copyBatchSize 每批复制的行数
const copyBatchSize = 200

// TableCopyResult 单表复制结果
type TableCopyResult struct {
	Table   string `json:"table"`
	Source  int64  `json:"source"`
	Copied  int64  `json:"copied"`
	Skipped int64  `json:"skipped"`
	Missing bool   `json:"missing"` // 源库中不存在该表
}

// CopyReport 数据库复制报告
type CopyReport struct {
	Tables []TableCopyResult `json:"tables"`
}

// Total 返回复制的总行数
func (r *CopyReport) Total() int64 {
	var n int64
	for _, t := range r.Tables {
		n += t.Copied
	}
	return n
}

// CopyDatabase 将源库的数据复制到目标库
// 目标库先执行迁移; 每行按自然键或主键"插入, 已存在则忽略", 因此可以重复执行。
// admin 与 categories 按唯一名称去重并由目标库重新分配ID,
// videos 与 video_analytics 保留原主键
func CopyDatabase(ctx context.Context, src, dst *gorm.DB) (*CopyReport, error) {
	if err := Migrate(dst.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("failed to migrate target database: %w", err)
	}

	report := &CopyReport{}
	steps := []struct {
		table string
		model interface{}
		copy  func(src, dst *gorm.DB, res *TableCopyResult) error
	}{
		{"admin", &Admin{}, copyAdmins},
		{"categories", &Category{}, copyCategories},
		{"videos", &Video{}, copyVideos},
		{"video_analytics", &VideoView{}, copyVideoViews},
	}

	for _, step := range steps {
		res := TableCopyResult{Table: step.table}
		if !src.Migrator().HasTable(step.model) {
			res.Missing = true
			report.Tables = append(report.Tables, res)
			logger.Warnf("源库中不存在表 %s, 跳过", step.table)
			continue
		}

		if err := src.WithContext(ctx).Model(step.model).Count(&res.Source).Error; err != nil {
			return report, fmt.Errorf("failed to count %s: %w", step.table, err)
		}
		if err := step.copy(src.WithContext(ctx), dst.WithContext(ctx), &res); err != nil {
			return report, fmt.Errorf("failed to copy %s: %w", step.table, err)
		}
		res.Skipped = res.Source - res.Copied
		report.Tables = append(report.Tables, res)
		logger.Infof("表 %s 复制完成: 源=%d, 复制=%d, 跳过=%d", step.table, res.Source, res.Copied, res.Skipped)
	}

	if IsPostgres(dst) {
		if err := syncSequence(dst.WithContext(ctx), "video_analytics"); err != nil {
			return report, err
		}
	}
	return report, nil
}

func insertIgnore(dst *gorm.DB, rows interface{}) (int64, error) {
	result := dst.Clauses(clause.OnConflict{DoNothing: true}).Create(rows)
	return result.RowsAffected, result.Error
}

func copyAdmins(src, dst *gorm.DB, res *TableCopyResult) error {
	var admins []Admin
	if err := src.Order("id").Find(&admins).Error; err != nil {
		return err
	}
	for _, a := range admins {
		a.ID = 0
		n, err := insertIgnore(dst, &a)
		if err != nil {
			return err
		}
		res.Copied += n
	}
	return nil
}

func copyCategories(src, dst *gorm.DB, res *TableCopyResult) error {
	var categories []Category
	if err := src.Order("id").Find(&categories).Error; err != nil {
		return err
	}
	for _, c := range categories {
		c.ID = 0
		n, err := insertIgnore(dst, &c)
		if err != nil {
			return err
		}
		res.Copied += n
	}
	return nil
}

func copyVideos(src, dst *gorm.DB, res *TableCopyResult) error {
	var batch []Video
	return src.FindInBatches(&batch, copyBatchSize, func(tx *gorm.DB, _ int) error {
		n, err := insertIgnore(dst, &batch)
		res.Copied += n
		return err
	}).Error
}

func copyVideoViews(src, dst *gorm.DB, res *TableCopyResult) error {
	var batch []VideoView
	return src.FindInBatches(&batch, copyBatchSize, func(tx *gorm.DB, _ int) error {
		n, err := insertIgnore(dst, &batch)
		res.Copied += n
		return err
	}).Error
}

// syncSequence 显式写入主键后, 将Postgres序列调整到当前最大值
func syncSequence(db *gorm.DB, table string) error {
	stmt := fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)",
		table,
	)
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("failed to sync sequence for %s: %w", table, err)
	}
	return nil
}
