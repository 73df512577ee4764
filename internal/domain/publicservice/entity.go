// Package publicservice は時間枠を所有する行政サービスを扱う
package publicservice

import (
	"strings"
	"time"
)

// UnassignedDepartment は担当部署が未設定のときの表示名
const UnassignedDepartment = "未割当"

// Service は窓口で提供される行政サービス
type Service struct {
	ID         string
	Name       string
	Department *string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewService は有効状態のサービスを作成する
func NewService(name string, department *string, now time.Time) *Service {
	if department != nil {
		d := strings.TrimSpace(*department)
		if d == "" {
			department = nil
		} else {
			department = &d
		}
	}
	return &Service{
		Name:       strings.TrimSpace(name),
		Department: department,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *Service) Validate() error {
	if s.Name == "" {
		return ErrServiceNameRequired
	}
	return nil
}

// DepartmentLabel は表示用の部署名を返す
// 保存値は変更しない
func (s *Service) DepartmentLabel() string {
	if s.Department == nil {
		return UnassignedDepartment
	}
	return *s.Department
}
