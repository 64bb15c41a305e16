// Package script roda a unidade de computação como JavaScript (goja).
//
// O script define uma função global:
//
//	function handle(request, kv, cache) { return {status: 200, headers: {}, body: "hi"} }
//
// request tem method, url, headers (nomes em minúsculas) e body (string).
// kv expõe get(key) -> string|null, put(key, value, ttlSeconds?) e delete(key).
// cache expõe match(url) -> response|null e put(url, response).
//
// handle pode ser async: a Promise é resolvida antes de montar a resposta.
// Cada requisição roda num runtime novo; o programa é compilado uma vez.
package script
