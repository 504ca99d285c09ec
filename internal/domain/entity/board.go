package entity

import "time"

// Company is an entry of the company registry
type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Board is a named set of columns. Departmental boards carry the canonical
// department name and belong to a company; boards without a company are global.
type Board struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CompanyID  string    `json:"company_id,omitempty"`
	Department string    `json:"department,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedBy  string    `json:"created_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Column is an ordered bucket of a board. Position orders columns left to right.
type Column struct {
	ID        string    `json:"id"`
	BoardID   string    `json:"board_id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// BoardPermission grants a user a level of access on a board
type BoardPermission struct {
	BoardID   string          `json:"board_id"`
	UserID    string          `json:"user_id"`
	Level     PermissionLevel `json:"level"`
	GrantedAt time.Time       `json:"granted_at"`
}

// Activity is one entry of a task's history
type Activity struct {
	ID         int64     `json:"id"`
	TaskID     string    `json:"task_id"`
	Kind       string    `json:"kind"`
	ActorID    string    `json:"actor_id,omitempty"`
	FromColumn string    `json:"from_column,omitempty"`
	ToColumn   string    `json:"to_column,omitempty"`
	Order      int       `json:"order"`
	CreatedAt  time.Time `json:"created_at"`
}
