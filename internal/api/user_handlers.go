package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/library-server/internal/domain"
	"github.com/listenupapp/library-server/internal/service"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listUsers",
		Method:      http.MethodGet,
		Path:        "/api/users",
		Summary:     "List users",
		Tags:        []string{"Users"},
		Metadata:    withMessage("Users retrieved"),
	}, s.handleListUsers)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createUser",
		Method:        http.MethodPost,
		Path:          "/api/users",
		Summary:       "Create user",
		Description:   "Registers a patron. Username and email must be unique",
		Tags:          []string{"Users"},
		DefaultStatus: http.StatusCreated,
		Metadata:      withMessage("User created"),
	}, s.handleCreateUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUser",
		Method:      http.MethodGet,
		Path:        "/api/users/{id}",
		Summary:     "Get user",
		Tags:        []string{"Users"},
		Metadata:    withMessage("User retrieved"),
	}, s.handleGetUser)
}

// UserIDInput identifies a user by path.
type UserIDInput struct {
	ID string `path:"id" doc:"User ID"`
}

// CreateUserInput wraps the create user request for Huma.
type CreateUserInput struct {
	Body service.CreateUserRequest
}

// UserOutput wraps a user for Huma.
type UserOutput struct {
	Body *domain.User
}

// UserListOutput wraps a list of users for Huma.
type UserListOutput struct {
	Body []*domain.User
}

func (s *Server) handleListUsers(ctx context.Context, _ *struct{}) (*UserListOutput, error) {
	users, err := s.services.User.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return &UserListOutput{Body: users}, nil
}

func (s *Server) handleCreateUser(ctx context.Context, input *CreateUserInput) (*UserOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	u, err := s.services.User.CreateUser(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: u}, nil
}

func (s *Server) handleGetUser(ctx context.Context, input *UserIDInput) (*UserOutput, error) {
	u, err := s.services.User.GetUser(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: u}, nil
}
