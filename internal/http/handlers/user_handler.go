package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-jobsearch-backend/internal/domain"
	"github.com/tbourn/go-jobsearch-backend/internal/services"
)

// UpsertUserRequest is the JSON payload for PUT /users/{id}.
type UpsertUserRequest struct {
	FirstName string `json:"first_name" example:"Ana"`
	LastName  string `json:"last_name"  example:"Ruiz"`
	Position  string `json:"position"   example:"Splicer"`
}

// ListUsersResponse wraps the crew directory.
type ListUsersResponse struct {
	Users []domain.User `json:"users"`
}

func userError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
	case errors.Is(err, services.ErrInvalidUser):
		fail(c, http.StatusBadRequest, ErrCodeInvalidUser, "user needs an id and a name")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// ListUsers godoc
// @ID          listUsers
// @Summary     List the crew directory
// @Tags        Users
// @Produce     json
// @Success     200  {object}  handlers.ListUsersResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	ok(c, http.StatusOK, ListUsersResponse{Users: users})
}

// UpsertUser godoc
// @ID          upsertUser
// @Summary     Create or replace a user
// @Description Search results resolve job creators through this directory; changes re-run live searches.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       id    path  string                      true  "User ID"  example(u-ana)
// @Param       body  body  handlers.UpsertUserRequest  true  "User"
// @Success     200  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /users/{id} [put]
func (h *Handlers) UpsertUser(c *gin.Context) {
	var req UpsertUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	u, err := h.users.Upsert(c.Request.Context(), domain.User{
		ID:        c.Param("id"),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Position:  req.Position,
	})
	if err != nil {
		userError(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// DeleteUser godoc
// @ID          deleteUser
// @Summary     Delete a user
// @Tags        Users
// @Param       id   path  string  true  "User ID"
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /users/{id} [delete]
func (h *Handlers) DeleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		userError(c, err)
		return
	}
	noContent(c)
}
