package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inkpress/inkpress/backend/internal/apperrors"
	"github.com/inkpress/inkpress/backend/internal/articles"
	"github.com/inkpress/inkpress/backend/internal/auth"
	"github.com/inkpress/inkpress/backend/internal/users"
)

const userIDContextKey = "inkpress_user_id"

var (
	errMissingTokenManager   = errors.New("token manager dependency required")
	errMissingUserService    = errors.New("user service dependency required")
	errMissingArticleService = errors.New("article service dependency required")
)

// TokenManager is the slice of the token service the router depends on.
type TokenManager interface {
	IssuePair(ctx context.Context, userID string) (auth.TokenPair, error)
	ValidateAccess(token string) (string, error)
	ValidateRefresh(ctx context.Context, token string) (string, error)
	InvalidateRefresh(ctx context.Context, token string) error
}

type Dependencies struct {
	TokenManager   TokenManager
	UserService    *users.Service
	ArticleService *articles.Service
	Logger         *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.UserService == nil {
		return nil, errMissingUserService
	}
	if deps.ArticleService == nil {
		return nil, errMissingArticleService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:   deps.TokenManager,
		users:    deps.UserService,
		articles: deps.ArticleService,
		logger:   logger,
	}

	router.POST("/user", handler.handleCreateUser)
	router.GET("/user", handler.requireAuth, handler.handleGetCurrentUser)
	router.PUT("/user", handler.requireAuth, handler.handleUpdateCurrentUser)
	router.DELETE("/user", handler.requireAuth, handler.handleDeactivateCurrentUser)
	router.GET("/user/:id", handler.handleGetUserByID)
	router.GET("/user/:id/articles_ids", handler.optionalAuth, handler.handleListUserArticleIDs)

	router.GET("/tokens", handler.handleTokens)

	router.POST("/article", handler.requireAuth, handler.handleCreateArticle)
	router.PUT("/article/:id", handler.requireAuth, handler.handleUpdateArticle)
	router.GET("/article/:id", handler.optionalAuth, handler.handleGetArticle)

	return router, nil
}

type httpHandler struct {
	tokens   TokenManager
	users    *users.Service
	articles *articles.Service
	logger   *zap.Logger
}

// requireAuth validates the bearer access token and stores the subject user
// id on the request context. A missing or blank header is reported as
// AuthorizationRequired; a present but bad token keeps its own error kind so
// callers can tell an expired token from a rejected one.
func (h *httpHandler) requireAuth(c *gin.Context) {
	token, present := bearerToken(c)
	if !present {
		h.abortWithError(c, apperrors.ErrAuthorizationRequired)
		return
	}
	userID, err := h.tokens.ValidateAccess(token)
	if err != nil {
		h.logger.Info("access token rejected", zap.Error(err))
		h.abortWithError(c, err)
		return
	}
	c.Set(userIDContextKey, userID)
	c.Next()
}

// optionalAuth resolves the caller identity when a token is supplied but
// lets anonymous requests through. A supplied token must still be valid.
func (h *httpHandler) optionalAuth(c *gin.Context) {
	token, present := bearerToken(c)
	if !present {
		c.Next()
		return
	}
	userID, err := h.tokens.ValidateAccess(token)
	if err != nil {
		h.logger.Info("access token rejected", zap.Error(err))
		h.abortWithError(c, err)
		return
	}
	c.Set(userIDContextKey, userID)
	c.Next()
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

type createUserPayload struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
}

func (h *httpHandler) handleCreateUser(c *gin.Context) {
	var request createUserPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeError(c, apperrors.ErrInvalidInputFormat)
		return
	}

	user, err := h.users.Create(c.Request.Context(), request.Email, request.Password, request.DisplayName)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToPayload(user))
}

func (h *httpHandler) handleGetCurrentUser(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), c.GetString(userIDContextKey))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if user == nil {
		h.writeError(c, apperrors.ErrContentNotFound)
		return
	}
	c.JSON(http.StatusOK, userToPayload(user))
}

type updateUserPayload struct {
	DisplayName string `json:"display_name" binding:"required"`
}

func (h *httpHandler) handleUpdateCurrentUser(c *gin.Context) {
	var request updateUserPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeError(c, apperrors.ErrInvalidInputFormat)
		return
	}

	user, err := h.users.Update(c.Request.Context(), c.GetString(userIDContextKey), request.DisplayName)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToPayload(user))
}

func (h *httpHandler) handleDeactivateCurrentUser(c *gin.Context) {
	if err := h.users.Deactivate(c.Request.Context(), c.GetString(userIDContextKey)); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleGetUserByID(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if user == nil {
		// Deactivated users look exactly like missing ones.
		h.writeError(c, apperrors.ErrContentNotFound)
		return
	}
	c.JSON(http.StatusOK, userToPayload(user))
}

type tokensPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// handleTokens serves both session entry points: email+password login and
// refresh token rotation. A presented refresh token is consumed before the
// replacement pair is issued.
func (h *httpHandler) handleTokens(c *gin.Context) {
	email := c.Query("email")
	password := c.Query("password")
	refreshToken := c.Query("refresh_token")

	var userID string
	switch {
	case email != "" || password != "":
		if email == "" || password == "" {
			h.writeError(c, apperrors.ErrInvalidInputFormat.WithDetails("User credentials or refresh token should be provided"))
			return
		}
		user, ok, err := h.users.CheckCredentials(c.Request.Context(), email, password)
		if err != nil {
			h.writeError(c, err)
			return
		}
		if !ok {
			h.writeError(c, apperrors.ErrInvalidCredentials)
			return
		}
		userID = user.ID
	case refreshToken != "":
		id, err := h.tokens.ValidateRefresh(c.Request.Context(), refreshToken)
		if err != nil {
			h.writeError(c, err)
			return
		}
		if err := h.tokens.InvalidateRefresh(c.Request.Context(), refreshToken); err != nil {
			h.writeError(c, err)
			return
		}
		userID = id
	default:
		h.writeError(c, apperrors.ErrInvalidInputFormat.WithDetails("User credentials or refresh token should be provided"))
		return
	}

	pair, err := h.tokens.IssuePair(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokensPayload{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

type createArticlePayload struct {
	Title string `json:"title" binding:"required"`
}

func (h *httpHandler) handleCreateArticle(c *gin.Context) {
	var request createArticlePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeError(c, apperrors.ErrInvalidInputFormat)
		return
	}

	article, err := h.articles.Create(c.Request.Context(), c.GetString(userIDContextKey), request.Title)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeArticle(c, article)
}

type updateArticlePayload struct {
	Title       string           `json:"title" binding:"required"`
	Body        []articles.Block `json:"body"`
	IsPublished bool             `json:"is_published"`
}

func (h *httpHandler) handleUpdateArticle(c *gin.Context) {
	var request updateArticlePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeError(c, apperrors.ErrInvalidInputFormat)
		return
	}

	article, err := h.articles.Update(
		c.Request.Context(),
		c.GetString(userIDContextKey),
		c.Param("id"),
		request.Title,
		request.Body,
		request.IsPublished,
	)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeArticle(c, article)
}

func (h *httpHandler) handleGetArticle(c *gin.Context) {
	articleID := c.Param("id")

	article, err := h.articles.GetByID(c.Request.Context(), c.GetString(userIDContextKey), articleID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	// The read already succeeded; a failed view increment is logged, not
	// surfaced.
	if err := h.articles.RecordView(c.Request.Context(), articleID, c.ClientIP()); err != nil {
		h.logger.Warn("failed to record article view",
			zap.String("article_id", articleID),
			zap.Error(err))
	}

	h.writeArticle(c, article)
}

func (h *httpHandler) handleListUserArticleIDs(c *gin.Context) {
	ids, err := h.articles.ListIDsByAuthor(c.Request.Context(), c.GetString(userIDContextKey), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ids)
}
