package domain

import (
	"context"
	"net/http"
)

// Unit é a unidade de computação externa: interpreta a requisição, usa o
// key-value e o cache, e produz a resposta.
//
// Para o shell ela é uma caixa-preta. Qualquer erro, panic ou atraso além
// do prazo vira o mesmo 500 genérico.
type Unit interface {
	Handle(ctx context.Context, req *http.Request, kv KVStore, cache Cache) (*Response, error)
}

// UnitFunc adapta uma função comum para Unit.
type UnitFunc func(ctx context.Context, req *http.Request, kv KVStore, cache Cache) (*Response, error)

func (f UnitFunc) Handle(ctx context.Context, req *http.Request, kv KVStore, cache Cache) (*Response, error) {
	return f(ctx, req, kv, cache)
}
