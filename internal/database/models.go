// Package database 定义了数据库相关的模型、连接与迁移
// 模型定义拆分在以下文件：
// - admin_models.go: 管理员凭据（Admin）
// - video_models.go: 视频目录相关模型（Video, Category, VideoView）
package database
