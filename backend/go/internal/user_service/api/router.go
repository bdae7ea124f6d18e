package api

import "github.com/gin-gonic/gin"

// RegisterRoutes 在 r 上注册用户服务的路由。
// limit 按客户端 IP 限制认证接口的调用频率，可以为 nil。
func RegisterRoutes(r gin.IRouter, h *Handler, auth gin.HandlerFunc, limit gin.HandlerFunc) {
	apiV1 := r.Group("/api/v1")

	// 用户认证路由组
	authGroup := apiV1.Group("/auth")
	if limit != nil {
		authGroup.Use(limit)
	}
	{
		authGroup.POST("/register/", h.Register)
		authGroup.POST("/token/", h.Token)
		authGroup.POST("/token/refresh/", h.RefreshToken)
		authGroup.POST("/check-username/", h.CheckUsername)
		authGroup.POST("/username-by-email/", h.UsernameByEmail)
		authGroup.POST("/forgot-password/", h.ForgotPassword)
		authGroup.POST("/verify-otp/", h.VerifyOTP)
		authGroup.POST("/reset-password/", h.ResetPassword)
	}

	users := apiV1.Group("/users")
	users.Use(auth)
	{
		users.GET("/me/", h.Me)
	}
}
