package account

import (
	"net/http"
	"time"

	"account-service/internal/config"
	"account-service/internal/query"
	"account-service/internal/token"
	"account-service/pkg/apperror"
	"account-service/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	service *Service
	cfg     *config.Config
}

func NewHandler(service *Service, cfg *config.Config) *Handler {
	return &Handler{service: service, cfg: cfg}
}

func (h *Handler) RegisterPublicRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.POST("/signup", h.Signup)
		users.POST("/login", h.Login)
		users.GET("/logout", h.Logout)
		users.POST("/forgot-password", h.ForgotPassword)
		users.PATCH("/reset-password/:token", h.ResetPassword)
	}
}

func (h *Handler) RegisterProtectedRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.GET("/me", h.Me)
		users.PATCH("/update-me", h.UpdateMe)
		users.PATCH("/update-my-password", h.UpdatePassword)
		users.DELETE("/delete-me", h.DeleteMe)
	}
}

func (h *Handler) RegisterAdminRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.GET("", h.List)
		users.POST("", h.Create)
		users.GET("/:id", h.Get)
		users.PATCH("/:id", h.Update)
		users.DELETE("/:id", h.Delete)
	}
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func badRequestBody() error {
	return apperror.New(apperror.KindValidationFailed, http.StatusBadRequest,
		"invalid request body")
}

// sendSession issues a fresh token, sets the session cookie and writes the
// response. The cookie is secure outside development so local setups without
// TLS still work.
func (h *Handler) sendSession(c *gin.Context, acct *Account, statusCode int) {
	lifetime := time.Duration(h.cfg.JWT.ExpiryHours) * time.Hour
	tok, err := token.Issue(acct.ID.String(), h.cfg.JWT.Secret, lifetime)
	if err != nil {
		fail(c, err)
		return
	}

	maxAge := h.cfg.JWT.CookieExpiryDays * 24 * 60 * 60
	c.SetCookie(SessionCookieName, tok, maxAge, "/", "", h.cfg.Server.IsProduction(), true)

	c.JSON(statusCode, gin.H{
		"status": "success",
		"token":  tok,
		"data":   gin.H{"user": acct.ToResponse()},
	})
}

// Session reports the caller identity when one could be resolved and an
// anonymous view otherwise. It never rejects the request.
func (h *Handler) Session(c *gin.Context) {
	if acct, ok := FromContext(c); ok {
		utils.Success(c, http.StatusOK, gin.H{"authenticated": true, "user": acct.ToResponse()})
		return
	}
	utils.Success(c, http.StatusOK, gin.H{"authenticated": false})
}

func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badRequestBody())
		return
	}

	req.Email = utils.SanitizeEmail(req.Email)
	req.Name = utils.SanitizeString(req.Name)

	acct, err := h.service.Signup(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	h.sendSession(c, acct, http.StatusCreated)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badRequestBody())
		return
	}

	req.Email = utils.SanitizeEmail(req.Email)

	acct, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	h.sendSession(c, acct, http.StatusOK)
}

// Logout overwrites the session cookie with a sentinel that expires almost
// immediately. The server keeps no revocation list.
func (h *Handler) Logout(c *gin.Context) {
	c.SetCookie(SessionCookieName, "loggedout", 10, "/", "", h.cfg.Server.IsProduction(), true)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badRequestBody())
		return
	}

	req.Email = utils.SanitizeEmail(req.Email)

	if err := h.service.IssueResetTicket(c.Request.Context(), req.Email); err != nil {
		fail(c, err)
		return
	}

	utils.Success(c, http.StatusOK, gin.H{"message": "token sent to email"})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badRequestBody())
		return
	}

	acct, err := h.service.RedeemResetTicket(c.Request.Context(), c.Param("token"), req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	h.sendSession(c, acct, http.StatusOK)
}

func (h *Handler) UpdatePassword(c *gin.Context) {
	acct, ok := FromContext(c)
	if !ok {
		fail(c, apperror.New(apperror.KindNoCredential, http.StatusUnauthorized,
			"you are not logged in, please log in to get access"))
		return
	}

	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badRequestBody())
		return
	}

	updated, err := h.service.UpdatePassword(c.Request.Context(), acct.ID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	h.sendSession(c, updated, http.StatusOK)
}

func (h *Handler) Me(c *gin.Context) {
	acct, ok := FromContext(c)
	if !ok {
		fail(c, apperror.New(apperror.KindNoCredential, http.StatusUnauthorized,
			"you are not logged in, please log in to get access"))
		return
	}

	utils.Success(c, http.StatusOK, gin.H{"user": acct.ToResponse()})
}

func (h *Handler) UpdateMe(c *gin.Context) {
	acct, ok := FromContext(c)
	if !ok {
		fail(c, apperror.New(apperror.KindNoCredential, http.StatusUnauthorized,
			"you are not logged in, please log in to get access"))
		return
	}

	var req struct {
		UpdateProfileRequest
		Password *string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badRequestBody())
		return
	}
	if req.Password != nil {
		fail(c, apperror.New(apperror.KindValidationFailed, http.StatusBadRequest,
			"this route is not for password updates, use /update-my-password"))
		return
	}

	if req.Email != nil {
		sanitized := utils.SanitizeEmail(*req.Email)
		req.Email = &sanitized
	}
	if req.Name != nil {
		sanitized := utils.SanitizeString(*req.Name)
		req.Name = &sanitized
	}

	updated, err := h.service.UpdateProfile(c.Request.Context(), acct.ID, &req.UpdateProfileRequest)
	if err != nil {
		fail(c, err)
		return
	}

	utils.Success(c, http.StatusOK, gin.H{"user": updated.ToResponse()})
}

func (h *Handler) DeleteMe(c *gin.Context) {
	acct, ok := FromContext(c)
	if !ok {
		fail(c, apperror.New(apperror.KindNoCredential, http.StatusUnauthorized,
			"you are not logged in, please log in to get access"))
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), acct.ID); err != nil {
		fail(c, err)
		return
	}

	utils.NoContent(c)
}

func (h *Handler) List(c *gin.Context) {
	opts := query.Parse(c.Request.URL.Query())

	accounts, err := h.service.List(c.Request.Context(), opts)
	if err != nil {
		fail(c, err)
		return
	}

	responses := make([]*Response, 0, len(accounts))
	for i := range accounts {
		responses = append(responses, accounts[i].ToResponse())
	}

	utils.SuccessList(c, len(responses), gin.H{"users": responses})
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badRequestBody())
		return
	}

	req.Email = utils.SanitizeEmail(req.Email)
	req.Name = utils.SanitizeString(req.Name)

	acct, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	utils.Success(c, http.StatusCreated, gin.H{"user": acct.ToResponse()})
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperror.New(apperror.KindInvalidIdentifier, http.StatusBadRequest,
			"invalid identifier: "+c.Param("id")))
		return
	}

	acct, err := h.service.Get(c.Request.Context(), id, IncludeInactive())
	if err != nil {
		fail(c, err)
		return
	}

	utils.Success(c, http.StatusOK, gin.H{"user": acct.ToResponse()})
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperror.New(apperror.KindInvalidIdentifier, http.StatusBadRequest,
			"invalid identifier: "+c.Param("id")))
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badRequestBody())
		return
	}

	if req.Email != nil {
		sanitized := utils.SanitizeEmail(*req.Email)
		req.Email = &sanitized
	}
	if req.Name != nil {
		sanitized := utils.SanitizeString(*req.Name)
		req.Name = &sanitized
	}

	acct, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		fail(c, err)
		return
	}

	utils.Success(c, http.StatusOK, gin.H{"user": acct.ToResponse()})
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperror.New(apperror.KindInvalidIdentifier, http.StatusBadRequest,
			"invalid identifier: "+c.Param("id")))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	utils.NoContent(c)
}
