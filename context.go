package goExpense

import "context"

type clientInfoKey struct{}

// clientInfo is the request metadata the engine records on audit events and uses for per-IP
// login throttling.
type clientInfo struct {
	ip        string
	userAgent string
}

func clientInfoFrom(ctx context.Context) clientInfo {
	if ctx == nil {
		return clientInfo{}
	}
	info, _ := ctx.Value(clientInfoKey{}).(clientInfo)
	return info
}

// WithClientIP attaches the caller's IP address to ctx.
func WithClientIP(ctx context.Context, ip string) context.Context {
	info := clientInfoFrom(ctx)
	info.ip = ip
	return context.WithValue(ctx, clientInfoKey{}, info)
}

// WithUserAgent attaches the HTTP User-Agent to ctx.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	info := clientInfoFrom(ctx)
	info.userAgent = userAgent
	return context.WithValue(ctx, clientInfoKey{}, info)
}

func clientIPFromContext(ctx context.Context) string { return clientInfoFrom(ctx).ip }

func userAgentFromContext(ctx context.Context) string { return clientInfoFrom(ctx).userAgent }
