package domain

import "testing"

func TestNewRiskAssessment_Approved(t *testing.T) {
	a := NewRiskAssessment("order-1", "saga-1", "user-1", 250.00)

	if !a.FraudCheck {
		t.Error("FraudCheck = false, want true for small amount")
	}
	if !a.VelocityCheck {
		t.Error("VelocityCheck = false, want true (policy stub)")
	}
	if !a.BlacklistCheck {
		t.Error("BlacklistCheck = false, want true for normal user")
	}
	if a.RiskScore != 0 {
		t.Errorf("RiskScore = %d, want 0", a.RiskScore)
	}
	if !a.Approved {
		t.Error("Approved = false, want true")
	}
	if a.RolledBack {
		t.Error("RolledBack = true on creation, want false")
	}
}

func TestNewRiskAssessment_HighAmountDeclined(t *testing.T) {
	a := NewRiskAssessment("order-1", "saga-1", "user-1", 15000.00)

	if a.FraudCheck {
		t.Error("FraudCheck = true, want false for amount > 10000")
	}
	if a.RiskScore != FraudWeight {
		t.Errorf("RiskScore = %d, want %d", a.RiskScore, FraudWeight)
	}
	// Fraud alone (40) stays under the threshold (50)
	if !a.Approved {
		t.Error("Approved = false, want true with only the fraud check failing")
	}
}

func TestNewRiskAssessment_BlockedUserDeclined(t *testing.T) {
	a := NewRiskAssessment("order-1", "saga-1", "user-blocked-7", 100.00)

	if a.BlacklistCheck {
		t.Error("BlacklistCheck = true, want false for blocked user")
	}
	if a.RiskScore != BlacklistWeight {
		t.Errorf("RiskScore = %d, want %d", a.RiskScore, BlacklistWeight)
	}
	// Blacklist alone (30) stays under the threshold
	if !a.Approved {
		t.Error("Approved = false, want true with only the blacklist check failing")
	}
}

func TestNewRiskAssessment_BlockedUserCaseInsensitive(t *testing.T) {
	for _, userID := range []string{"Blocked-user-9", "user-BLOCKED-9"} {
		a := NewRiskAssessment("order-1", "saga-1", userID, 100.00)
		if a.BlacklistCheck {
			t.Errorf("BlacklistCheck = true for %q, want false regardless of case", userID)
		}
		if a.RiskScore != BlacklistWeight {
			t.Errorf("RiskScore = %d for %q, want %d", a.RiskScore, userID, BlacklistWeight)
		}
	}
}

func TestNewRiskAssessment_HighAmountBlockedUser(t *testing.T) {
	a := NewRiskAssessment("order-1", "saga-1", "blocked-user", 20000.00)

	if a.RiskScore != FraudWeight+BlacklistWeight {
		t.Errorf("RiskScore = %d, want %d", a.RiskScore, FraudWeight+BlacklistWeight)
	}
	if a.Approved {
		t.Error("Approved = true, want false for score >= 50")
	}
}

func TestNewRiskAssessment_BoundaryAmount(t *testing.T) {
	a := NewRiskAssessment("order-1", "saga-1", "user-1", 10000.00)
	if !a.FraudCheck {
		t.Error("FraudCheck = false at exactly 10000, want true (limit is exclusive)")
	}

	a = NewRiskAssessment("order-1", "saga-1", "user-1", 10000.01)
	if a.FraudCheck {
		t.Error("FraudCheck = true just above 10000, want false")
	}
}

func TestRollback_Idempotent(t *testing.T) {
	a := NewRiskAssessment("order-1", "saga-1", "user-1", 100.00)

	if !a.Rollback() {
		t.Error("first Rollback() = false, want true")
	}
	if !a.RolledBack {
		t.Error("RolledBack = false after rollback")
	}
	if a.Rollback() {
		t.Error("second Rollback() = true, want false (no-op)")
	}
	if !a.RolledBack {
		t.Error("RolledBack flipped back to false")
	}
}
