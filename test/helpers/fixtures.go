package helpers

import (
	"time"

	"github.com/google/uuid"

	"github.com/richxcame/tutor-payouts/internal/fraud"
	"github.com/richxcame/tutor-payouts/internal/withdrawal"
)

// Known networks used by the tutor fixtures
const (
	HomeIP    = "113.161.42.17"
	HomeIPAlt = "113.161.42.201"
	ForeignIP = "185.220.101.4"
)

// CreateTestTutor creates a verified tutor who joined joinedDaysAgo days before now
func CreateTestTutor(now time.Time, joinedDaysAgo int) *fraud.TutorContext {
	return &fraud.TutorContext{
		TutorID:       uuid.New(),
		LegalName:     "Nguyễn Văn An",
		Email:         "an.nguyen@example.com",
		EmailVerified: true,
		JoinedAt:      now.AddDate(0, 0, -joinedDaysAgo),
	}
}

// CreateTestBank creates bank details matching CreateTestTutor's legal name
func CreateTestBank() withdrawal.BankDetails {
	return withdrawal.BankDetails{
		HolderName:    "NGUYEN VAN AN",
		AccountNumber: "0071001234567",
		BankName:      "Vietcombank",
		BankBin:       "970436",
	}
}

// CreateMismatchedBank creates bank details in someone else's name
func CreateMismatchedBank() withdrawal.BankDetails {
	b := CreateTestBank()
	b.HolderName = "TRAN THI BICH"
	return b
}
