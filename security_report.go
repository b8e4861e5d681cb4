package schedauth

import (
	"github.com/MrEthical07/schedauth/internal/security"
)

type (
	SecurityReport       = security.Report
	PasswordConfigReport = security.PasswordReport
)

// SecurityReport describes the effective security posture, including
// whether provider tokens are sealed with a key that dies with the process.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config
	hmac := isHMAC(cfg.JWT.SigningMethod)
	return security.BuildReport(security.ReportInput{
		ProductionMode:   cfg.Production(),
		SigningAlgorithm: e.tokens.Algorithm(),
		DevSecret:        hmac && string(cfg.JWT.Secret) == DevSecretKey,
		ShortSecret:      hmac && len(cfg.JWT.Secret) < 32,
		AccessTTL:        cfg.JWT.AccessTTL,
		RefreshTTL:       cfg.JWT.RefreshTTL,
		Password: security.PasswordReport{
			Algorithm:   string(e.hasher.Algorithm()),
			BcryptCost:  cfg.Password.BcryptCost,
			Memory:      cfg.Password.Argon2.Memory,
			Time:        cfg.Password.Argon2.Time,
			Parallelism: cfg.Password.Argon2.Parallelism,
		},
		UpgradeOnLogin:     cfg.Password.UpgradeOnLogin,
		MaxLoginAttempts:   cfg.Lockout.MaxAttempts,
		LockoutDuration:    cfg.Lockout.Duration,
		OTPDigits:          cfg.OTP.Digits,
		OTPAttemptLimit:    cfg.OTP.MaxAttempts,
		RevealOTP:          cfg.OTP.RevealCode,
		EphemeralCipherKey: e.ephemeral,
		AuditEnabled:       cfg.Audit.Enabled,
		MetricsEnabled:     cfg.Metrics.Enabled,
	})
}
