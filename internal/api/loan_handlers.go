package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/library-server/internal/dto"
	"github.com/listenupapp/library-server/internal/service"
)

func (s *Server) registerLoanRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listLoans",
		Method:      http.MethodGet,
		Path:        "/api/loans",
		Summary:     "List loans",
		Description: "Returns every loan with total, active and overdue counts",
		Tags:        []string{"Loans"},
		Metadata:    withMessage("Loans retrieved"),
	}, s.handleListLoans)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createLoan",
		Method:        http.MethodPost,
		Path:          "/api/loans",
		Summary:       "Create loan",
		Description:   "Checks out one copy of a book to a user",
		Tags:          []string{"Loans"},
		DefaultStatus: http.StatusCreated,
		Metadata:      withMessage("Loan created"),
	}, s.handleCreateLoan)

	huma.Register(s.api, huma.Operation{
		OperationID: "listOverdueLoans",
		Method:      http.MethodGet,
		Path:        "/api/loans/overdue",
		Summary:     "List overdue loans",
		Description: "Returns active loans past their due date",
		Tags:        []string{"Loans"},
		Metadata:    withMessage("Overdue loans retrieved"),
	}, s.handleListOverdueLoans)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUserLoans",
		Method:      http.MethodGet,
		Path:        "/api/loans/user/{userId}",
		Summary:     "List a user's loans",
		Tags:        []string{"Loans"},
		Metadata:    withMessage("Loans retrieved"),
	}, s.handleListUserLoans)

	huma.Register(s.api, huma.Operation{
		OperationID: "getLoan",
		Method:      http.MethodGet,
		Path:        "/api/loans/{id}",
		Summary:     "Get loan",
		Tags:        []string{"Loans"},
		Metadata:    withMessage("Loan retrieved"),
	}, s.handleGetLoan)

	huma.Register(s.api, huma.Operation{
		OperationID: "returnLoan",
		Method:      http.MethodPut,
		Path:        "/api/loans/{id}/return",
		Summary:     "Return loan",
		Description: "Closes an active loan and offers the copy to the reservation queue",
		Tags:        []string{"Loans"},
		Metadata:    withMessage("Loan returned"),
	}, s.handleReturnLoan)

	huma.Register(s.api, huma.Operation{
		OperationID: "extendLoan",
		Method:      http.MethodPut,
		Path:        "/api/loans/{id}/extend",
		Summary:     "Extend loan",
		Description: "Pushes the due date of an active loan out by extension_days (default 7)",
		Tags:        []string{"Loans"},
		Metadata:    withMessage("Loan extended"),
	}, s.handleExtendLoan)
}

// === DTOs ===

// LoanIDInput identifies a loan by path.
type LoanIDInput struct {
	ID string `path:"id" doc:"Loan ID"`
}

// UserPathInput identifies a user by path.
type UserPathInput struct {
	UserID string `path:"userId" doc:"User ID"`
}

// CreateLoanInput wraps the create loan request for Huma.
type CreateLoanInput struct {
	Body service.CreateLoanRequest
}

// ReturnLoanRequest optionally backdates a return.
type ReturnLoanRequest struct {
	ReturnDate *FlexTime `json:"return_date,omitempty" doc:"When the copy came back; defaults to now"`
}

// ReturnLoanInput wraps the optional return body for Huma.
type ReturnLoanInput struct {
	ID   string `path:"id" doc:"Loan ID"`
	Body *ReturnLoanRequest
}

// ExtendLoanInput wraps the optional extension body for Huma.
type ExtendLoanInput struct {
	ID   string `path:"id" doc:"Loan ID"`
	Body *service.ExtendLoanRequest
}

// LoanOutput wraps a loan for Huma.
type LoanOutput struct {
	Body *dto.Loan
}

// LoanListOutput wraps a list of loans with counts for Huma.
type LoanListOutput struct {
	Body *dto.LoanList
}

// === Handlers ===

func (s *Server) handleListLoans(ctx context.Context, _ *struct{}) (*LoanListOutput, error) {
	loans, err := s.services.Loan.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	return &LoanListOutput{Body: loans}, nil
}

func (s *Server) handleCreateLoan(ctx context.Context, input *CreateLoanInput) (*LoanOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	loan, err := s.services.Loan.CreateLoan(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &LoanOutput{Body: loan}, nil
}

func (s *Server) handleListOverdueLoans(ctx context.Context, _ *struct{}) (*LoanListOutput, error) {
	loans, err := s.services.Loan.ListOverdueLoans(ctx)
	if err != nil {
		return nil, err
	}
	return &LoanListOutput{Body: loans}, nil
}

func (s *Server) handleListUserLoans(ctx context.Context, input *UserPathInput) (*LoanListOutput, error) {
	loans, err := s.services.Loan.ListUserLoans(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	return &LoanListOutput{Body: loans}, nil
}

func (s *Server) handleGetLoan(ctx context.Context, input *LoanIDInput) (*LoanOutput, error) {
	loan, err := s.services.Loan.GetLoan(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &LoanOutput{Body: loan}, nil
}

func (s *Server) handleReturnLoan(ctx context.Context, input *ReturnLoanInput) (*LoanOutput, error) {
	var returnDate *FlexTime
	if input.Body != nil {
		returnDate = input.Body.ReturnDate
	}

	loan, err := s.services.Loan.ReturnLoan(ctx, input.ID, returnDate.timePtr())
	if err != nil {
		return nil, err
	}
	return &LoanOutput{Body: loan}, nil
}

func (s *Server) handleExtendLoan(ctx context.Context, input *ExtendLoanInput) (*LoanOutput, error) {
	var days *int
	if input.Body != nil {
		if err := s.validator.Validate(input.Body); err != nil {
			return nil, err
		}
		days = input.Body.ExtensionDays
	}

	loan, err := s.services.Loan.ExtendLoan(ctx, input.ID, days)
	if err != nil {
		return nil, err
	}
	return &LoanOutput{Body: loan}, nil
}
