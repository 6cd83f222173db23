package domain

// ErrorCode identifies a shorten failure independently of its message text
type ErrorCode string

const (
	ErrCodeBadJSON       ErrorCode = "bad_json"
	ErrCodeRateLimited   ErrorCode = "rate_limited"
	ErrCodeInvalidURL    ErrorCode = "invalid_url"
	ErrCodeURLNotAllowed ErrorCode = "url_not_allowed"
	ErrCodeShortInUse    ErrorCode = "short_in_use"
	ErrCodeInvalidShort  ErrorCode = "invalid_short"
	ErrCodeInvalidExpiry ErrorCode = "invalid_expiry"
	ErrCodeNotFound      ErrorCode = "not_found"
	ErrCodeInternal      ErrorCode = "internal"
)

// Messages sent in the error field. Existing clients match these verbatim,
// so they must never change.
const (
	MsgBadJSON       = "Cannot parse JSON"
	MsgRateLimited   = "Rate limit exceeded"
	MsgInvalidURL    = "Invalid URL"
	MsgURLNotAllowed = "This URL cannot be shortened"
	MsgShortInUse    = "URL custom short is already in use"
	MsgInvalidShort  = "Invalid custom short"
	MsgInvalidExpiry = "Invalid expiry"
	MsgNotFound      = "Short not found"
	MsgInternal      = "Unable to connect to server"
)

var messageByCode = map[ErrorCode]string{
	ErrCodeBadJSON:       MsgBadJSON,
	ErrCodeRateLimited:   MsgRateLimited,
	ErrCodeInvalidURL:    MsgInvalidURL,
	ErrCodeURLNotAllowed: MsgURLNotAllowed,
	ErrCodeShortInUse:    MsgShortInUse,
	ErrCodeInvalidShort:  MsgInvalidShort,
	ErrCodeInvalidExpiry: MsgInvalidExpiry,
	ErrCodeNotFound:      MsgNotFound,
	ErrCodeInternal:      MsgInternal,
}

// Message returns the wire message for the code
func (c ErrorCode) Message() string {
	if msg, ok := messageByCode[c]; ok {
		return msg
	}
	return MsgInternal
}

// Classify resolves the code of an error response. The structured code wins;
// responses from servers that only send a message are matched on the exact
// message text. Anything unrecognised is returned as an empty code.
func (r *ShortenErrorResponse) Classify() ErrorCode {
	if r.Code != "" {
		if _, ok := messageByCode[r.Code]; ok {
			return r.Code
		}
	}
	for code, msg := range messageByCode {
		if r.Error == msg {
			return code
		}
	}
	return ""
}

// NewErrorResponse builds the error body for a code
func NewErrorResponse(code ErrorCode) ShortenErrorResponse {
	return ShortenErrorResponse{
		Error: code.Message(),
		Code:  code,
	}
}
