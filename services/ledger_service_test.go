package services

import (
	"testing"
	"time"

	"eduadmin_go/models"

	"github.com/shopspring/decimal"
)

func TestSplitDeduction(t *testing.T) {
	tests := []struct {
		name        string
		paid        string
		gift        string
		qty         string
		expPaidUsed string
		expGiftUsed string
		expSource   string
		expOK       bool
	}{
		{
			name: "paid covers all", paid: "10", gift: "2", qty: "1.5",
			expPaidUsed: "1.5", expGiftUsed: "0", expSource: models.SourcePaid, expOK: true,
		},
		{
			name: "paid exhausted then gift", paid: "1", gift: "2", qty: "1.5",
			expPaidUsed: "1", expGiftUsed: "0.5", expSource: models.SourcePaid, expOK: true,
		},
		{
			name: "gift only", paid: "0", gift: "3", qty: "2",
			expPaidUsed: "0", expGiftUsed: "2", expSource: models.SourceGift, expOK: true,
		},
		{
			name: "exact combined balance", paid: "1", gift: "1", qty: "2",
			expPaidUsed: "1", expGiftUsed: "1", expSource: models.SourcePaid, expOK: true,
		},
		{
			name: "insufficient", paid: "1", gift: "0.5", qty: "2",
			expOK: false,
		},
		{
			name: "both empty", paid: "0", gift: "0", qty: "1",
			expOK: false,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			paid := decimal.RequireFromString(tc.paid)
			gift := decimal.RequireFromString(tc.gift)
			qty := decimal.RequireFromString(tc.qty)

			paidUsed, giftUsed, source, ok := SplitDeduction(paid, gift, qty)
			if ok != tc.expOK {
				t.Fatalf("expected ok=%v, got %v", tc.expOK, ok)
			}
			if !ok {
				if !paidUsed.IsZero() || !giftUsed.IsZero() {
					t.Fatalf("failed split must not report usage, got paid=%s gift=%s",
						paidUsed.String(), giftUsed.String())
				}
				return
			}
			if paidUsed.String() != tc.expPaidUsed {
				t.Fatalf("expected paid used %s, got %s", tc.expPaidUsed, paidUsed.String())
			}
			if giftUsed.String() != tc.expGiftUsed {
				t.Fatalf("expected gift used %s, got %s", tc.expGiftUsed, giftUsed.String())
			}
			if source != tc.expSource {
				t.Fatalf("expected main source %s, got %s", tc.expSource, source)
			}
		})
	}
}

func TestAccountSpendable(t *testing.T) {
	today := time.Date(2025, 7, 10, 0, 0, 0, 0, time.Local)
	yesterday := today.AddDate(0, 0, -1)

	hoursAccount := func(paid, gift string) *models.Account {
		return &models.Account{
			DeductUnit:         models.UnitHours,
			Status:             "active",
			RemainingHours:     decimal.RequireFromString(paid),
			RemainingHoursGift: decimal.RequireFromString(gift),
		}
	}

	tests := []struct {
		name string
		acc  *models.Account
		exp  bool
	}{
		{name: "paid balance", acc: hoursAccount("5", "0"), exp: true},
		{name: "gift only balance", acc: hoursAccount("0", "2"), exp: true},
		{name: "no balance", acc: hoursAccount("0", "0"), exp: false},
		{
			name: "gift only sessions",
			acc: &models.Account{
				DeductUnit:            models.UnitSessions,
				Status:                "active",
				RemainingSessionsGift: decimal.RequireFromString("1"),
			},
			exp: true,
		},
		{
			name: "expired account",
			acc: func() *models.Account {
				a := hoursAccount("5", "5")
				a.ExpireAt = &yesterday
				return a
			}(),
			exp: false,
		},
		{
			name: "expires today still counts",
			acc: func() *models.Account {
				a := hoursAccount("0", "1")
				a.ExpireAt = &today
				return a
			}(),
			exp: true,
		},
		{
			name: "closed account",
			acc: func() *models.Account {
				a := hoursAccount("5", "5")
				a.Status = "closed"
				return a
			}(),
			exp: false,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := AccountSpendable(tc.acc, today); got != tc.exp {
				t.Fatalf("expected %v, got %v", tc.exp, got)
			}
		})
	}
}
