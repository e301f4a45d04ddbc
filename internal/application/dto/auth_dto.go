package dto

// LoginRequest credenciales de acceso.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse token emitido tras autenticar.
type LoginResponse struct {
	Token        string `json:"token"`
	UserID       string `json:"user_id"`
	EnterpriseID string `json:"enterprise_id"`
	Role         string `json:"role"`
}

// RegisterRequest alta de usuario.
type RegisterRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	EnterpriseID string `json:"enterprise_id"`
	Role         string `json:"role,omitempty"`
}

// UserResponse usuario sin campos sensibles.
type UserResponse struct {
	ID           string `json:"id"`
	EnterpriseID string `json:"enterprise_id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	Status       string `json:"status"`
}
