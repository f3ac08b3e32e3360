package handlers

import (
	"net/http"

	"larica/middleware"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Email    string `form:"email" json:"email" binding:"required,email"`
	Password string `form:"password" json:"password" binding:"required"`
}

type RegisterRequest struct {
	DisplayName     string `form:"display_name" json:"display_name" binding:"required"`
	Email           string `form:"email" json:"email" binding:"required,email"`
	Password        string `form:"password" json:"password" binding:"required,min=6"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password" binding:"required"`
}

type UpdateProfileRequest struct {
	DisplayName string `form:"display_name" json:"display_name"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `form:"current_password" json:"current_password" binding:"required"`
	NewPassword     string `form:"new_password" json:"new_password" binding:"required"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password" binding:"required"`
}

func (h *Handler) LoginPage(c *gin.Context) {
	v := middleware.GetVisitor(c)
	respond(c, http.StatusOK, "login.html", page(v, "Login"))
}

// Login signs the visitor in and stores the ID token cookie
func (h *Handler) Login(c *gin.Context) {
	v := middleware.GetVisitor(c)
	data := page(v, "Login")

	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		data["error"] = err.Error()
		data["email"] = req.Email
		respond(c, http.StatusBadRequest, "login.html", data)
		return
	}

	res := v.Session.Login(c.Request.Context(), req.Email, req.Password)
	if !res.Success {
		data["error"] = res.Message
		data["email"] = req.Email
		respond(c, http.StatusUnauthorized, "login.html", data)
		return
	}

	h.syncToken(c, v)
	done(c, http.StatusOK, "/", gin.H{
		"message": "Login successful",
		"user":    v.Session.User(),
	})
}

func (h *Handler) RegisterPage(c *gin.Context) {
	v := middleware.GetVisitor(c)
	respond(c, http.StatusOK, "register.html", page(v, "Register"))
}

// Register creates an account and signs it in
func (h *Handler) Register(c *gin.Context) {
	v := middleware.GetVisitor(c)
	data := page(v, "Register")

	var req RegisterRequest
	err := c.ShouldBind(&req)
	data["email"] = req.Email
	data["display_name"] = req.DisplayName
	if err != nil {
		data["error"] = err.Error()
		respond(c, http.StatusBadRequest, "register.html", data)
		return
	}
	if req.Password != req.ConfirmPassword {
		data["error"] = "Passwords do not match"
		respond(c, http.StatusBadRequest, "register.html", data)
		return
	}

	res := v.Session.RegisterUser(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if !res.Success {
		data["error"] = res.Message
		respond(c, http.StatusConflict, "register.html", data)
		return
	}

	h.syncToken(c, v)
	done(c, http.StatusCreated, "/", gin.H{
		"message": "Account created successfully",
		"user":    v.Session.User(),
	})
}

// Profile shows the signed-in user's profile
func (h *Handler) Profile(c *gin.Context) {
	v := middleware.GetVisitor(c)
	respond(c, http.StatusOK, "profile.html", page(v, "Profile"))
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	v := middleware.GetVisitor(c)

	var req UpdateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		data := page(v, "Profile")
		data["error"] = err.Error()
		respond(c, http.StatusBadRequest, "profile.html", data)
		return
	}

	res := v.Session.UpdateUser(c.Request.Context(), req.DisplayName)
	if !res.Success {
		data := page(v, "Profile")
		data["error"] = res.Message
		respond(c, http.StatusBadRequest, "profile.html", data)
		return
	}
	done(c, http.StatusOK, "/", gin.H{
		"message": "Profile updated",
		"user":    v.Session.User(),
	})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	v := middleware.GetVisitor(c)

	var req ChangePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		data := page(v, "Profile")
		data["password_error"] = err.Error()
		respond(c, http.StatusBadRequest, "profile.html", data)
		return
	}

	res := v.Session.ChangePassword(c.Request.Context(), req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if !res.Success {
		data := page(v, "Profile")
		data["password_error"] = res.Message
		respond(c, http.StatusBadRequest, "profile.html", data)
		return
	}
	done(c, http.StatusOK, "/", gin.H{"message": "Password changed"})
}

// Logout signs out and clears the token cookie
func (h *Handler) Logout(c *gin.Context) {
	v := middleware.GetVisitor(c)
	if err := v.Session.Logout(c.Request.Context()); err != nil {
		data := page(v, "Profile")
		data["error"] = "Failed to sign out"
		respond(c, http.StatusInternalServerError, "profile.html", data)
		return
	}
	h.syncToken(c, v)
	done(c, http.StatusOK, "/", gin.H{"message": "Logged out"})
}
