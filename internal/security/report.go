package security

import "time"

type PasswordReport struct {
	Algorithm   string
	BcryptCost  int
	Memory      uint32
	Time        uint32
	Parallelism uint8
}

// Report is a read-only posture snapshot. Nothing in it is secret.
type Report struct {
	ProductionMode     bool
	SigningAlgorithm   string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	Password           PasswordReport
	UpgradeOnLogin     bool
	LockoutActive      bool
	LockoutThreshold   int
	LockoutDuration    time.Duration
	OTPDigits          int
	OTPAttemptLimit    int
	OTPCodeRevealed    bool
	EphemeralCipherKey bool
	AuditEnabled       bool
	MetricsEnabled     bool
	// Warnings lists settings that are acceptable in development but
	// would be rejected in production.
	Warnings []string
}

type ReportInput struct {
	ProductionMode     bool
	SigningAlgorithm   string
	DevSecret          bool
	ShortSecret        bool
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	Password           PasswordReport
	UpgradeOnLogin     bool
	MaxLoginAttempts   int
	LockoutDuration    time.Duration
	OTPDigits          int
	OTPAttemptLimit    int
	RevealOTP          bool
	EphemeralCipherKey bool
	AuditEnabled       bool
	MetricsEnabled     bool
}

func BuildReport(in ReportInput) Report {
	r := Report{
		ProductionMode:     in.ProductionMode,
		SigningAlgorithm:   in.SigningAlgorithm,
		AccessTTL:          in.AccessTTL,
		RefreshTTL:         in.RefreshTTL,
		Password:           in.Password,
		UpgradeOnLogin:     in.UpgradeOnLogin,
		LockoutActive:      in.MaxLoginAttempts > 0 && in.LockoutDuration > 0,
		LockoutThreshold:   in.MaxLoginAttempts,
		LockoutDuration:    in.LockoutDuration,
		OTPDigits:          in.OTPDigits,
		OTPAttemptLimit:    in.OTPAttemptLimit,
		OTPCodeRevealed:    in.RevealOTP && !in.ProductionMode,
		EphemeralCipherKey: in.EphemeralCipherKey,
		AuditEnabled:       in.AuditEnabled,
		MetricsEnabled:     in.MetricsEnabled,
	}
	if in.EphemeralCipherKey {
		r.Warnings = append(r.Warnings, "oauth token cipher key is ephemeral")
	}
	if in.DevSecret {
		r.Warnings = append(r.Warnings, "signing secret is the development default")
	}
	if in.ShortSecret {
		r.Warnings = append(r.Warnings, "signing secret is shorter than 32 bytes")
	}
	if r.OTPCodeRevealed {
		r.Warnings = append(r.Warnings, "otp codes are returned to callers")
	}
	return r
}
