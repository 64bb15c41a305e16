package infra

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"edge-dispatch/edge/domain"
)

// LoadSeed grava no kv as linhas "chave<TAB>valor" lidas de r.
// Linhas vazias e começando com '#' são ignoradas. Retorna quantas chaves gravou.
func LoadSeed(ctx context.Context, kv domain.KVStore, r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	n, line := 0, 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, value, ok := strings.Cut(text, "\t")
		if !ok || strings.TrimSpace(key) == "" {
			return n, fmt.Errorf("seed line %d: expected key<TAB>value", line)
		}
		if err := kv.Put(ctx, strings.TrimSpace(key), []byte(value), 0); err != nil {
			return n, fmt.Errorf("seed line %d: %w", line, err)
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("seed: %w", err)
	}
	return n, nil
}
