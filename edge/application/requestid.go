package application

import "context"

type requestIDKey struct{}

// WithRequestID anexa o id da requisição ao contexto (usado em logs e stats).
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom devolve o id anexado por WithRequestID, ou "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
