package identity

import "fmt"

var (
	ErrProfileNotFound      = fmt.Errorf("profile not found")
	ErrInvalidToken         = fmt.Errorf("invalid token")
	ErrInvalidSigningMethod = fmt.Errorf("invalid signing method")
	ErrInvalidPlan          = fmt.Errorf("invalid subscription plan")
)
