package provider

import (
	"context"
	"math"
	"strconv"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/iho/vaultledger/internal/domain"
	"github.com/iho/vaultledger/internal/usecase"
)

const (
	pathCreateVirtualAccount     = "/virtual-accounts"
	pathDeactivateVirtualAccount = "/virtual-accounts/deactivate"
	pathTransfer                 = "/transfers"
	pathWalletBalance            = "/wallet/balance"
)

type createVirtualAccountRequest struct {
	Reference   string `json:"reference"`
	AccountName string `json:"accountName"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	BVN         string `json:"bvn,omitempty"`
}

type createVirtualAccountResponse struct {
	Status
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
	BankName      string `json:"bankName"`
}

type deactivateVirtualAccountRequest struct {
	Reference     string `json:"reference"`
	AccountNumber string `json:"accountNumber"`
}

type transferRequest struct {
	Reference                string `json:"transactionReference"`
	SourceAccountNumber      string `json:"sourceAccountNumber"`
	BeneficiaryAccountNumber string `json:"beneficiaryAccountNumber"`
	BeneficiaryBankCode      string `json:"beneficiaryBankCode"`
	BeneficiaryAccountName   string `json:"beneficiaryAccountName,omitempty"`
	Amount                   string `json:"amount"`
	Narration                string `json:"narration,omitempty"`
}

type transferResponse struct {
	Status
	TransactionID string `json:"transactionId"`
	SessionID     string `json:"sessionId"`
}

type walletBalanceRequest struct {
	Reference     string `json:"reference"`
	AccountNumber string `json:"accountNumber,omitempty"`
}

type walletBalanceResponse struct {
	Status
	AvailableBalance decimal.Decimal `json:"availableBalance"`
}

var _ usecase.ProviderClient = (*Client)(nil)

// CreateVirtualAccount provisions a virtual account on the collection API.
func (c *Client) CreateVirtualAccount(ctx context.Context, req usecase.VirtualAccountRequest) (*usecase.VirtualAccount, error) {
	var resp createVirtualAccountResponse
	err := c.Post(ctx, Request{
		Operation:    "create_virtual_account",
		API:          APICollection,
		Path:         pathCreateVirtualAccount,
		Reference:    req.Reference,
		FieldsToHash: []string{req.AccountName, req.BVN},
		Body: createVirtualAccountRequest{
			Reference:   req.Reference,
			AccountName: req.AccountName,
			Email:       req.Email,
			PhoneNumber: req.PhoneNumber,
			BVN:         req.BVN,
		},
	}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.AccountNumber == "" {
		return nil, &domain.ProviderError{
			Operation:  "create_virtual_account",
			StatusCode: resp.StatusCode,
			Message:    "response carried no account number",
		}
	}

	return &usecase.VirtualAccount{
		AccountNumber: resp.AccountNumber,
		AccountName:   resp.AccountName,
		BankName:      resp.BankName,
	}, nil
}

// DeactivateVirtualAccount closes a virtual account on the collection API.
func (c *Client) DeactivateVirtualAccount(ctx context.Context, accountNumber, reference string) error {
	return c.Post(ctx, Request{
		Operation:    "deactivate_virtual_account",
		API:          APICollection,
		Path:         pathDeactivateVirtualAccount,
		Reference:    reference,
		FieldsToHash: []string{accountNumber},
		Body: deactivateVirtualAccountRequest{
			Reference:     reference,
			AccountNumber: accountNumber,
		},
	}, nil)
}

// Transfer pays out to an external bank account through the business API.
// Amounts cross the wire in major units.
func (c *Client) Transfer(ctx context.Context, req usecase.ProviderTransferRequest) (*usecase.ProviderTransferResult, error) {
	amount := domain.MinorToMajor(req.Amount)
	source := req.SourceAccountNumber
	if c.cfg.SourceAccount != "" {
		source = c.cfg.SourceAccount
	}

	var resp transferResponse
	err := c.Post(ctx, Request{
		Operation:    "transfer",
		API:          APIBusiness,
		Path:         pathTransfer,
		Reference:    req.Reference,
		FieldsToHash: []string{amount, req.DestinationAccount, req.DestinationBankCode},
		Body: transferRequest{
			Reference:                req.Reference,
			SourceAccountNumber:      source,
			BeneficiaryAccountNumber: req.DestinationAccount,
			BeneficiaryBankCode:      req.DestinationBankCode,
			BeneficiaryAccountName:   req.DestinationName,
			Amount:                   amount,
			Narration:                req.Narration,
		},
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &usecase.ProviderTransferResult{
		StatusCode:    resp.StatusCode,
		TransactionID: resp.TransactionID,
		SessionID:     resp.SessionID,
	}, nil
}

// WalletBalance reads the settlement wallet balance and converts it to minor units.
func (c *Client) WalletBalance(ctx context.Context) (int64, error) {
	reference := "BAL-" + ulid.Make().String()

	var resp walletBalanceResponse
	err := c.Post(ctx, Request{
		Operation:    "wallet_balance",
		API:          APIBusiness,
		Path:         pathWalletBalance,
		Reference:    reference,
		FieldsToHash: []string{c.cfg.SourceAccount},
		Body: walletBalanceRequest{
			Reference:     reference,
			AccountNumber: c.cfg.SourceAccount,
		},
	}, &resp)
	if err != nil {
		return 0, err
	}

	minor := resp.AvailableBalance.Shift(domain.MinorUnitExponent).Round(0)
	if minor.Abs().GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, &domain.ProviderError{
			Operation:  "wallet_balance",
			StatusCode: resp.StatusCode,
			Message:    "balance out of range: " + strconv.Quote(resp.AvailableBalance.String()),
		}
	}
	return minor.IntPart(), nil
}
