package model

import "time"

type AuditLog struct {
	ID        string    `json:"id"`
	ActorID   *string   `json:"actor_id"`
	ActorRole *string   `json:"actor_role"`
	Action    string    `json:"action"`
	Target    *string   `json:"target"`
	CreatedAt time.Time `json:"created_at"`
}
