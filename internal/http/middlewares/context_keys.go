package middlewares

type ctxKey string

const (
	CtxRequestID ctxKey = "requestID"
	CtxAddress   ctxKey = "address"
	// CtxDigest carries the digest of a transaction the request submitted.
	CtxDigest ctxKey = "digest"
)
