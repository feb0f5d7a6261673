package model

// UserProfile is the parsed user context used to answer questions.
type UserProfile struct {
	RawText      string `json:"-" yaml:"-"`
	PrimaryEmail string `json:"primary_email,omitempty" yaml:"primary_email,omitempty"`
	Optimist     bool   `json:"optimist" yaml:"optimist"`
}
