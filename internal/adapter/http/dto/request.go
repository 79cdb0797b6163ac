package dto

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/iho/vaultledger/internal/domain"
	"github.com/iho/vaultledger/internal/usecase"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks req against its struct tags.
func Validate(req any) error {
	return validate.Struct(req)
}

// ValidationDetails flattens validator errors into field -> failed tag.
func ValidationDetails(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fmt.Sprintf("failed on '%s'", fe.Tag())
	}
	return details
}

// toMinor converts a major-unit request amount, requiring it to be positive.
func toMinor(amount decimal.Decimal) (int64, error) {
	minor, err := domain.DecimalToMinor(amount)
	if err != nil {
		return 0, err
	}
	if minor <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	return minor, nil
}

// ProvisionAccountRequest represents a request to provision a ledger account.
// AccountNumber is set only when registering an account the provider already issued.
type ProvisionAccountRequest struct {
	AccountNumber  string          `json:"account_number" validate:"omitempty,numeric,min=6,max=20"`
	AccountName    string          `json:"account_name"   validate:"required,max=128"`
	Email          string          `json:"email"          validate:"omitempty,email"`
	PhoneNumber    string          `json:"phone_number"   validate:"omitempty,max=20"`
	BVN            string          `json:"bvn"            validate:"omitempty,numeric,len=11"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// ToUseCaseInput converts to use case input.
func (r *ProvisionAccountRequest) ToUseCaseInput() (usecase.ProvisionAccountInput, error) {
	opening, err := domain.DecimalToMinor(r.OpeningBalance)
	if err != nil {
		return usecase.ProvisionAccountInput{}, err
	}
	return usecase.ProvisionAccountInput{
		AccountNumber:  r.AccountNumber,
		AccountName:    r.AccountName,
		Email:          r.Email,
		PhoneNumber:    r.PhoneNumber,
		BVN:            r.BVN,
		OpeningBalance: opening,
	}, nil
}

// WithdrawalRequest represents a payout from a ledger account to an external bank account.
type WithdrawalRequest struct {
	AccountNumber       string          `json:"account_number"        validate:"required,numeric"`
	Amount              decimal.Decimal `json:"amount"`
	Reference           string          `json:"reference"             validate:"required,max=64"`
	DestinationAccount  string          `json:"destination_account"   validate:"required,numeric,min=6,max=20"`
	DestinationBankCode string          `json:"destination_bank_code" validate:"required,max=10"`
	DestinationName     string          `json:"destination_name"      validate:"omitempty,max=128"`
	Narration           string          `json:"narration"             validate:"omitempty,max=255"`
}

// ToUseCaseInput converts to use case input.
func (r *WithdrawalRequest) ToUseCaseInput() (usecase.WithdrawInput, error) {
	amount, err := toMinor(r.Amount)
	if err != nil {
		return usecase.WithdrawInput{}, err
	}
	return usecase.WithdrawInput{
		AccountNumber:       r.AccountNumber,
		Amount:              amount,
		Reference:           r.Reference,
		DestinationAccount:  r.DestinationAccount,
		DestinationBankCode: r.DestinationBankCode,
		DestinationName:     r.DestinationName,
		Narration:           r.Narration,
	}, nil
}

// TransferRequest represents a transfer between two ledger accounts.
type TransferRequest struct {
	FromAccountNumber string          `json:"from_account_number" validate:"required,numeric"`
	ToAccountNumber   string          `json:"to_account_number"   validate:"required,numeric,nefield=FromAccountNumber"`
	Amount            decimal.Decimal `json:"amount"`
	Reference         string          `json:"reference"           validate:"required,max=64"`
	Narration         string          `json:"narration"           validate:"omitempty,max=255"`
}

// ToUseCaseInput converts to use case input.
func (r *TransferRequest) ToUseCaseInput() (usecase.TransferInput, error) {
	amount, err := toMinor(r.Amount)
	if err != nil {
		return usecase.TransferInput{}, err
	}
	return usecase.TransferInput{
		FromAccountNumber: r.FromAccountNumber,
		ToAccountNumber:   r.ToAccountNumber,
		Amount:            amount,
		Reference:         r.Reference,
		Narration:         r.Narration,
	}, nil
}
