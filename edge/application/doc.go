// Package application contém os casos de uso do shell: o Dispatcher (que chama
// a unidade de computação sob a política de contenção de falhas) e as regras
// de admissão (rate limit e limite de concorrência).
//
// Depende do pacote domain. Não escreve em http.ResponseWriter: devolve
// sempre um *domain.Response ou uma Decision.
package application
