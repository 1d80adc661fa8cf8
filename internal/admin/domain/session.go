package domain

// Scope distinguishes full sessions from the short-lived token handed out
// between the password and OTP steps of a login.
type Scope string

const (
	ScopeAccess    Scope = "access"
	ScopeTwoFactor Scope = "2fa"
)

func (s Scope) Valid() bool { return s == ScopeAccess || s == ScopeTwoFactor }

// SessionToken is the cached record behind an opaque bearer token. Times are
// stored as Unix milliseconds; LastRenewAt and SessionExpiresAt are optional
// on the wire and default from IssuedAt.
type SessionToken struct {
	UserID           int64  `json:"userId"`
	Username         string `json:"username"`
	Scope            Scope  `json:"scope"`
	Version          int64  `json:"ver"`
	IssuedAt         int64  `json:"issuedAt"`
	LastRenewAt      int64  `json:"lastRenewAt,omitempty"`
	SessionExpiresAt int64  `json:"sessionExpiresAt,omitempty"`
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	User  User
	Scope Scope
	Token string
}

// Captcha is an issued challenge. Only the id and the rendered image leave the server.
type Captcha struct {
	ID  string
	SVG string
}

// OTPSetup is returned when a user starts TOTP enrollment.
type OTPSetup struct {
	Secret        string
	OTPAuthURL    string
	QRCodeDataURL string
}

// LoginResult is the outcome of the password step. Temporary is true when
// AccessToken is a two-factor token that must be exchanged via the OTP step.
type LoginResult struct {
	AccessToken string
	Temporary   bool
}

