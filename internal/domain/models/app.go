package models

import "time"

// App is a generation target: one logical application a user iterates on
// through conversational code generation. The code generation layout is
// selected once at creation time and never changes afterwards.
type App struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Name        string      `json:"name"`
	InitPrompt  string      `json:"init_prompt"`
	CodeGenType CodeGenType `json:"code_gen_type"`
	DeployKey   *string     `json:"deploy_key,omitempty"`
	DeployedAt  *time.Time  `json:"deployed_at,omitempty"`
	CoverURL    *string     `json:"cover_url,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
