package domain

import (
	"context"
	"errors"
	"time"
)

var ErrEmptyKey = errors.New("kv: empty key")

// KVStore é o handle do key-value persistente, compartilhado por todas as
// requisições do processo.
//
// Chaves e valores são byte strings. Get retorna found=false quando a chave
// não existe (não é erro). ttl <= 0 em Put significa sem expiração.
// Implementações devem ser seguras para uso concorrente.
type KVStore interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
