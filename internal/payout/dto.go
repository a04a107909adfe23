package payout

import "github.com/shopspring/decimal"

// BankAccountRequest is the payout destination submitted by a tutor
type BankAccountRequest struct {
	HolderName    string `json:"holderName" binding:"required,max=100"`
	AccountNumber string `json:"accountNumber" binding:"required,numeric,min=6,max=20"`
	BankName      string `json:"bankName" binding:"required,max=100"`
	BankBin       string `json:"bankBin" binding:"required,bank_bin"`
}

// CreateWithdrawalRequest is the body of POST /payout/withdrawals
type CreateWithdrawalRequest struct {
	Amount      decimal.Decimal    `json:"amount" binding:"required,money"`
	BankAccount BankAccountRequest `json:"bankAccount" binding:"required"`
}

// ApproveRequest is the body of the admin approve call
type ApproveRequest struct {
	Note string `json:"note" binding:"max=500"`
}

// RejectRequest is the body of the admin reject call
type RejectRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}
