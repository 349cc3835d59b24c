package database

import "time"

// Admin 管理员凭据模型
// 每个部署只使用一条记录, 由运维命令创建或替换, 不通过API修改
type Admin struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	Username   string    `gorm:"uniqueIndex;not null;size:100" json:"username"`
	Password   string    `gorm:"not null;size:255" json:"-"`                         // bcrypt哈希, 明文从不落库
	SecretPath string    `gorm:"column:secret_path;uniqueIndex;not null;size:255" json:"-"` // 访问管理后台的秘密路径
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName 指定Admin模型对应的数据库表名
func (Admin) TableName() string {
	return "admin"
}

// SecretPathMaxLen 秘密路径列宽
const SecretPathMaxLen = 255
