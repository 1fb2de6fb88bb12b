// Package config 서버 설정
package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// 사용자 역할
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// UsersConfig 사용자 설정
// 관리자는 모든 사용자의 파이프라인에 접근 가능
type UsersConfig struct {
	AdminUsers  []string `yaml:"admin_users"`
	SystemOwner string   `yaml:"system_owner"`
}

// LoadUsersConfig 사용자 설정 파일 로드
func LoadUsersConfig(path string) (*UsersConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// 파일이 없으면 빈 설정 반환
			return &UsersConfig{}, nil
		}
		return nil, err
	}

	var cfg UsersConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	for i, name := range cfg.AdminUsers {
		cfg.AdminUsers[i] = normalize(name)
	}
	cfg.SystemOwner = normalize(cfg.SystemOwner)

	return &cfg, nil
}

// LoadUsersConfigFromEnv 환경변수에서 사용자 설정 로드
// SP_ADMIN_USERS=user1,user2 형식
func LoadUsersConfigFromEnv() *UsersConfig {
	cfg := &UsersConfig{}

	if admins := os.Getenv("SP_ADMIN_USERS"); admins != "" {
		for _, name := range strings.Split(admins, ",") {
			name = normalize(name)
			if name != "" {
				cfg.AdminUsers = append(cfg.AdminUsers, name)
			}
		}
	}
	cfg.SystemOwner = normalize(os.Getenv("SP_SYSTEM_OWNER"))

	return cfg
}

// Merge 두 설정 병합 (other가 우선)
func (c *UsersConfig) Merge(other *UsersConfig) {
	if other == nil {
		return
	}
	c.AdminUsers = append(c.AdminUsers, other.AdminUsers...)
	if other.SystemOwner != "" {
		c.SystemOwner = other.SystemOwner
	}
}

// IsAdmin 관리자 여부
func (c *UsersConfig) IsAdmin(username string) bool {
	username = normalize(username)
	for _, admin := range c.AdminUsers {
		if admin == username {
			return true
		}
	}
	return false
}

// GetRole 사용자 이름에 해당하는 역할 반환
func (c *UsersConfig) GetRole(username string) string {
	if c.IsAdmin(username) {
		return RoleAdmin
	}
	return RoleUser
}

func normalize(name string) string {
	return strings.TrimSpace(strings.ToLower(name))
}
