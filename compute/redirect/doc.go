// Package redirect é uma unidade de computação dirigida pelo key-value:
// para cada host (ou host+path) o KV guarda um redirecionamento ou uma origem
// a ser buscada e servida pelo cache.
//
// Chaves:
//
//	host + path + "/"   (path com barra final)
//	host                (vale para todos os paths)
//
// Valores (ver ParseValue):
//
//	000:<permanent>:<append_path>:<url>
//	001:<permanent>:<append_path>:<fetch>:<url>
//
// com opções 't' ou 'f'. Sem chave: 404 com corpo vazio.
package redirect
