package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inkpress/inkpress/backend/internal/apperrors"
	"github.com/inkpress/inkpress/backend/internal/articles"
	"github.com/inkpress/inkpress/backend/internal/users"
)

const creationDateLayout = "2006-01-02"

type errorPayload struct {
	ErrorCode int    `json:"error_code"`
	Details   string `json:"details"`
}

// writeError translates service errors into the wire envelope. Anything that
// is not an apperrors.Error is logged and reported as Unexpected so internal
// failure detail never leaks to clients.
func (h *httpHandler) writeError(c *gin.Context, err error) {
	var appError *apperrors.Error
	if !errors.As(err, &appError) {
		h.logger.Error("unexpected error", zap.Error(err))
		appError = apperrors.ErrUnexpected
	}
	c.JSON(appError.Status, errorPayload{
		ErrorCode: appError.Code,
		Details:   appError.Details,
	})
}

func (h *httpHandler) abortWithError(c *gin.Context, err error) {
	h.writeError(c, err)
	c.Abort()
}

type userPayload struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	CreationDate string `json:"creation_date"`
}

func userToPayload(user *users.User) userPayload {
	return userPayload{
		ID:           user.ID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		CreationDate: user.CreationDate.UTC().Format(creationDateLayout),
	}
}

type articlePayload struct {
	ID           string           `json:"id"`
	AuthorID     string           `json:"author_id"`
	CreationTime time.Time        `json:"creation_time"`
	UpdateTime   time.Time        `json:"update_time"`
	Title        string           `json:"title"`
	Body         []articles.Block `json:"body"`
	IsPublished  bool             `json:"is_published"`
	ViewsCount   int64            `json:"views_count"`
	LikesCount   int64            `json:"likes_count"`
}

func (h *httpHandler) writeArticle(c *gin.Context, article *articles.Article) {
	body, err := articles.DecodeBody(article.BodyJSON)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, articlePayload{
		ID:           article.ID,
		AuthorID:     article.AuthorID,
		CreationTime: article.CreationTime.UTC(),
		UpdateTime:   article.UpdateTime.UTC(),
		Title:        article.Title,
		Body:         body,
		IsPublished:  article.IsPublished,
		ViewsCount:   article.ViewsCount,
		LikesCount:   article.LikesCount,
	})
}
