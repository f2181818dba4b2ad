package model

const (
	RuntimeLua = "lua"
	RuntimeGo  = "go"
)

// Runtime describes an interpreter submissions can be written for.
type Runtime struct {
	Slug     string `json:"slug"` // For API usage
	Name     string `json:"name"`
	Hint     string `json:"hint"`
	IsActive bool   `json:"is_active"`
}
