package model

// LoginRequest is the login form payload.
type LoginRequest struct {
	UserName string `json:"user_name" form:"user_name" binding:"required,min=3,max=64"`
	Password string `json:"password" form:"password" binding:"required,min=4,max=128"`
}

// DemoLoginRequest signs in with the demo token under the chosen role.
type DemoLoginRequest struct {
	Role string `form:"role" binding:"required,oneof=TEACHER STUDENT"`
}

// TokenResponse is the backend's login response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UploadedImage is the backend's response to an image upload.
type UploadedImage struct {
	ImageKey string `json:"image_key"`
}
