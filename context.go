package guardkit

import "context"

type clientIPContextKey struct{}
type requestInfoContextKey struct{}

type requestInfo struct {
	method string
	path   string
}

// WithClientIP attaches the caller's IP address to ctx. The Pipeline uses it
// for audit logging; rate limiting keys on the hashed identifier instead.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithRequestInfo attaches the HTTP method and path to ctx so audit events
// emitted deeper in the pipeline can name the request they belong to.
func WithRequestInfo(ctx context.Context, method, path string) context.Context {
	return context.WithValue(ctx, requestInfoContextKey{}, requestInfo{method: method, path: path})
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func requestInfoFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}

	info, _ := ctx.Value(requestInfoContextKey{}).(requestInfo)
	return info.method, info.path
}
