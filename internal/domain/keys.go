package domain

type CtxKey string

const (
	KeySessionID   CtxKey = "SessionID"
	KeySession     CtxKey = "Session"
	KeyRequestID   CtxKey = "RequestID"
	KeyAccessToken CtxKey = "AccessToken"
)
