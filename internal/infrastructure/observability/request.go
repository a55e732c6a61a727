package observability

import "context"

// RequestInfo is filled in while a request travels inward and read by the
// outer middleware once the handler returns. Inner layers copy the request
// with WithContext, so a shared pointer is the only way back out. It is
// owned by the request goroutine.
type RequestInfo struct {
	// Route is the matched mux pattern, e.g. "GET /api/providers/{id}"
	Route     string
	SessionID string
	UserID    string
}

type requestInfoKey struct{}

// WithRequestInfo returns ctx carrying a RequestInfo, reusing one that is
// already present.
func WithRequestInfo(ctx context.Context) (context.Context, *RequestInfo) {
	if info := RequestInfoFromContext(ctx); info != nil {
		return ctx, info
	}
	info := &RequestInfo{}
	return context.WithValue(ctx, requestInfoKey{}, info), info
}

// RequestInfoFromContext returns the request's info, or nil outside a request
func RequestInfoFromContext(ctx context.Context) *RequestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(*RequestInfo)
	return info
}

// SetRoute records the matched route on ctx's RequestInfo, if any
func SetRoute(ctx context.Context, pattern string) {
	if info := RequestInfoFromContext(ctx); info != nil {
		info.Route = pattern
	}
}

// SetIdentity records the authenticated caller on ctx's RequestInfo, if any
func SetIdentity(ctx context.Context, sessionID, userID string) {
	if info := RequestInfoFromContext(ctx); info != nil {
		info.SessionID = sessionID
		info.UserID = userID
	}
}
