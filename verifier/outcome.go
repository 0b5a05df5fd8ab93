package verifier

import "time"

// Code discriminates the closed set of verification outcomes. Exactly one
// code is produced per Verify call; infrastructure faults travel on the
// error return instead, so a broken resolver can never read as "credential
// invalid".
type Code string

const (
	CodeValid           Code = "valid"
	CodeExpired         Code = "expired"
	CodeRevoked         Code = "revoked"
	CodeBadProof        Code = "bad_proof"
	CodeUntrustedIssuer Code = "untrusted_issuer"
	CodeSchemaViolation Code = "schema_violation"
)

// Finding is one failed check, kept when the caller asks for a full report
// instead of first-failure short-circuiting.
type Finding struct {
	Code   Code
	Detail string
}

// Outcome is the result of verifying one credential. Code carries the
// variant; the payload fields are populated for the variants they belong
// to. Warnings accumulate non-fatal findings on a valid credential, such as
// a deprecated proof suite.
type Outcome struct {
	Code         Code
	Reason       string
	ExpiredAt    *time.Time
	Issuer       string
	SchemaErrors []string
	Warnings     []string
	Findings     []Finding
}

// IsValid reports whether every enabled check passed.
func (o Outcome) IsValid() bool {
	return o.Code == CodeValid
}

func valid(warnings []string) Outcome {
	return Outcome{Code: CodeValid, Warnings: warnings}
}

func badProof(reason string) Outcome {
	return Outcome{Code: CodeBadProof, Reason: reason}
}

func expired(at time.Time) Outcome {
	return Outcome{Code: CodeExpired, ExpiredAt: &at}
}

func revoked(reason string) Outcome {
	return Outcome{Code: CodeRevoked, Reason: reason}
}

func untrusted(issuerDID string) Outcome {
	return Outcome{Code: CodeUntrustedIssuer, Issuer: issuerDID}
}

func schemaViolation(errs []string) Outcome {
	return Outcome{Code: CodeSchemaViolation, SchemaErrors: errs}
}
