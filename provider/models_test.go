package provider

import (
	"testing"

	"github.com/xraph/quota/account"
	"github.com/xraph/quota/tier"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw     string
		want    Status
		wantErr bool
	}{
		{"active", StatusActive, false},
		{"paid", StatusActive, false},
		{"Active", StatusActive, false},
		{" trialing ", StatusTrial, false},
		{"trial", StatusTrial, false},
		{"pastDue", StatusPastDue, false},
		{"past_due", StatusPastDue, false},
		{"cancelled", StatusCancelled, false},
		{"canceled", StatusCancelled, false},
		{"inactive", StatusInactive, false},
		{"expired", StatusInactive, false},
		{"bogus", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NormalizeStatus(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeStatus(%q) err = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeStatus(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDerive(t *testing.T) {
	plans := DefaultPlanMap()

	tests := []struct {
		name string
		in   State
		want Outcome
	}{
		{
			"paid active pro",
			State{Key: "u1", Paid: true, Status: "active", Plan: "pro"},
			Outcome{Tier: tier.Pro, Status: account.StatusActive},
		},
		{
			"paid active standard",
			State{Key: "u1", Paid: true, Status: "active", Plan: "standard"},
			Outcome{Tier: tier.Standard, Status: account.StatusActive},
		},
		{
			"paid past due loses paid access",
			State{Key: "u1", Paid: true, Status: "pastDue", Plan: "pro"},
			Outcome{Tier: tier.Free, Status: account.StatusPastDue, PastDue: true},
		},
		{
			"paid soft-cancel keeps tier",
			State{Key: "u1", Paid: true, Status: "cancelled", Plan: "pro"},
			Outcome{Tier: tier.Pro, Status: account.StatusCancelled, Cancelled: true},
		},
		{
			"paid trialing keeps plan tier",
			State{Key: "u1", Paid: true, Status: "trialing", Plan: "standard"},
			Outcome{Tier: tier.Standard, Status: account.StatusTrial},
		},
		{
			"unpaid trial",
			State{Key: "u1", Paid: false, Status: "trial"},
			Outcome{Tier: tier.Free, Status: account.StatusTrial},
		},
		{
			"unpaid inactive",
			State{Key: "u1", Paid: false, Status: "inactive"},
			Outcome{Tier: tier.Free, Status: account.StatusInactive},
		},
		{
			"unpaid cancelled is inactive with flag",
			State{Key: "u1", Paid: false, Status: "cancelled"},
			Outcome{Tier: tier.Free, Status: account.StatusInactive, Cancelled: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Derive(tt.in, plans)
			if err != nil {
				t.Fatalf("Derive: %v", err)
			}
			if got != tt.want {
				t.Errorf("Derive = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDeriveRejects(t *testing.T) {
	plans := DefaultPlanMap()

	tests := []struct {
		name string
		in   State
	}{
		{"missing key", State{Status: "active"}},
		{"missing status", State{Key: "u1"}},
		{"unknown status", State{Key: "u1", Status: "limbo"}},
		{"paid active unknown plan", State{Key: "u1", Paid: true, Status: "active", Plan: "enterprise"}},
		{"paid active empty plan", State{Key: "u1", Paid: true, Status: "active"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Derive(tt.in, plans); err == nil {
				t.Errorf("Derive(%+v) succeeded, want error", tt.in)
			}
		})
	}
}

func TestDeriveDoesNotGuess(t *testing.T) {
	// A rejected state must produce the zero Outcome so callers can't
	// accidentally apply it.
	out, err := Derive(State{Key: "u1", Paid: true, Status: "active", Plan: "mystery"}, DefaultPlanMap())
	if err == nil {
		t.Fatal("want error")
	}
	if out != (Outcome{}) {
		t.Errorf("rejected Derive returned non-zero outcome %+v", out)
	}
}
