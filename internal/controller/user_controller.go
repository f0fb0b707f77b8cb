package controller

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jt828/users-api/internal/service"
	"github.com/jt828/users-api/pkg/apperror"
	"github.com/jt828/users-api/pkg/model"
)

const maxBodyBytes = 1 << 20

type CreateUserRequest struct {
	Name string `json:"name"`
}

type UserController struct {
	userService service.UserService
}

func NewUserController(userService service.UserService) *UserController {
	return &UserController{userService: userService}
}

func (ctrl *UserController) CreateUser(w http.ResponseWriter, r *http.Request) error {
	var request CreateUserRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&request); err != nil {
		return fmt.Errorf("malformed request body: %w", apperror.ErrInvalidArgument)
	}
	if request.Name == "" {
		return fmt.Errorf("name is required: %w", apperror.ErrInvalidArgument)
	}

	createdUser, err := ctrl.userService.CreateUser(r.Context(), request.Name)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, createdUser)
	return nil
}

func (ctrl *UserController) ListUsers(w http.ResponseWriter, r *http.Request) error {
	users, err := ctrl.userService.ListUsers(r.Context())
	if err != nil {
		return err
	}
	if users == nil {
		users = []*model.User{}
	}

	writeJSON(w, http.StatusOK, users)
	return nil
}

func (ctrl *UserController) GetUserById(w http.ResponseWriter, r *http.Request) error {
	id, err := model.ParseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		return fmt.Errorf("%v: %w", err, apperror.ErrInvalidArgument)
	}

	user, err := ctrl.userService.GetUser(r.Context(), id)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, user)
	return nil
}
